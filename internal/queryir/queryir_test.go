package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
)

func sampleNodes() []ir.Node {
	return []ir.Node{
		{ID: "c", Name: "Buy MILK", Position: 2, IsStarred: true},
		{ID: "a", Name: "Groceries", Position: 0},
		{ID: "b", Name: "milk 100%_fat", TemplateID: "task", Position: 1},
		{ID: "d", Name: "Call Bob", TemplateID: "task", Position: 1, IsStarred: true},
	}
}

func ids(nodes []ir.Node) []ir.NodeID {
	out := make([]ir.NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Predicate
	}{
		{"", nil},
		{"   ", nil},
		{"milk", Contains{Field: FieldName, Text: "milk"}},
		{"name:milk", Contains{Field: FieldName, Text: "milk"}},
		{"is:starred", Equals{Field: FieldStarred, Value: ir.IRBool(true)}},
		{"template:task", Equals{Field: FieldTemplate, Value: ir.IRString("task")}},
		{"id:n1", Equals{Field: FieldID, Value: ir.IRString("n1")}},
		{"-is:starred", Not{Predicate: Equals{Field: FieldStarred, Value: ir.IRBool(true)}}},
		{"milk template:task", And{Predicates: []Predicate{
			Contains{Field: FieldName, Text: "milk"},
			Equals{Field: FieldTemplate, Value: ir.IRString("task")},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, in := range []string{"-", "is:", "is:done", "owner:me", "--"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFilter(in)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Select{Document: "d", Filter: And{Predicates: []Predicate{
		Contains{Field: FieldName, Text: "x"},
		Not{Predicate: Equals{Field: FieldStarred, Value: ir.IRBool(false)}},
	}}}
	assert.NoError(t, Validate(valid))
	assert.NoError(t, Validate(Select{Document: "d"}))

	tests := []struct {
		name string
		q    Select
		want string
	}{
		{"document", Select{}, "document: required"},
		{"limit", Select{Document: "d", Limit: -1}, "limit: must not be negative"},
		{"starred type", Select{Document: "d", Filter: Equals{Field: FieldStarred, Value: ir.IRString("yes")}}, "takes a bool"},
		{"text type", Select{Document: "d", Filter: Equals{Field: FieldName, Value: ir.IRInt(1)}}, "takes a string"},
		{"unknown field", Select{Document: "d", Filter: Equals{Field: "data", Value: ir.IRString("x")}}, `unknown field "data"`},
		{"contains field", Select{Document: "d", Filter: Contains{Field: FieldStarred, Text: "x"}}, "needs a text field"},
		{"contains text", Select{Document: "d", Filter: Contains{Field: FieldName}}, "non-empty text"},
		{"empty and", Select{Document: "d", Filter: And{}}, "at least one predicate"},
		{"nested path", Select{Document: "d", Filter: And{Predicates: []Predicate{Not{}}}}, "filter.and[0]: not needs a predicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.q)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApply(t *testing.T) {
	nodes := sampleNodes()
	tests := []struct {
		filter string
		limit  int
		want   []ir.NodeID
	}{
		{"", 0, []ir.NodeID{"a", "b", "d", "c"}},
		{"milk", 0, []ir.NodeID{"b", "c"}},
		{"MiLk", 0, []ir.NodeID{"b", "c"}},
		{"is:starred", 0, []ir.NodeID{"d", "c"}},
		{"-is:starred", 0, []ir.NodeID{"a", "b"}},
		{"template:task is:starred", 0, []ir.NodeID{"d"}},
		{"milk -template:task", 0, []ir.NodeID{"c"}},
		{"100%_", 0, []ir.NodeID{"b"}},
		{"id:a", 0, []ir.NodeID{"a"}},
		{"", 2, []ir.NodeID{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			p, err := ParseFilter(tt.filter)
			require.NoError(t, err)
			got := Apply(Select{Document: "doc", Filter: p, Limit: tt.limit}, nodes)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMatch_UnicodeCaseIsExact(t *testing.T) {
	n := &ir.Node{ID: "x", Name: "\u00c9cole"}
	assert.True(t, Match(Contains{Field: FieldName, Text: "\u00c9"}, n))
	assert.False(t, Match(Contains{Field: FieldName, Text: "\u00e9"}, n))
}
