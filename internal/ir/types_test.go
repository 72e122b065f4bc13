package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFieldNaming(t *testing.T) {
	n := Node{
		ID:         "n1",
		DocumentID: "doc",
		TemplateID: "task",
		ParentIDs:  []NodeID{"p1"},
		Order:      []int64{0},
		IsStarred:  true,
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"parent_ids"`)
	assert.Contains(t, string(data), `"template_id"`)
	assert.Contains(t, string(data), `"is_starred"`)
	assert.NotContains(t, string(data), `"parentIds"`)
	assert.NotContains(t, string(data), `"children"`, "children are derived, never serialized")
}

func TestNodeClone_IsDeep(t *testing.T) {
	orig := Node{
		ID:        "n1",
		Data:      IRObject{"tags": IRArray{IRString("a")}},
		ParentIDs: []NodeID{"p1", "p2"},
		Order:     []int64{3, 4},
	}
	cp := orig.Clone()

	cp.ParentIDs[0] = "changed"
	cp.Order[1] = 99
	cp.Data["tags"].(IRArray)[0] = IRString("z")

	assert.Equal(t, NodeID("p1"), orig.ParentIDs[0])
	assert.Equal(t, int64(4), orig.Order[1])
	assert.Equal(t, IRString("a"), orig.Data["tags"].(IRArray)[0])
}

func TestNodeEdges(t *testing.T) {
	n := Node{ID: "x"}
	assert.True(t, n.IsRoot())
	assert.Equal(t, []Instance{{Node: "x"}}, n.Instances())

	n.AddEdge("p1", 5)
	n.AddEdge("p2", 7)
	assert.True(t, n.IsClone())
	assert.Equal(t, 1, n.ParentIndex("p2"))

	o, ok := n.OrderAt("p2")
	require.True(t, ok)
	assert.Equal(t, int64(7), o)

	require.True(t, n.SetOrderAt("p1", 9))
	assert.Equal(t, []int64{9, 7}, n.Order)

	require.True(t, n.RemoveEdge("p1"))
	assert.False(t, n.RemoveEdge("p1"))
	assert.Equal(t, []NodeID{"p2"}, n.ParentIDs)
	assert.Equal(t, []int64{7}, n.Order)
	assert.Len(t, n.Order, len(n.ParentIDs))
}

func TestTemplateTitleField(t *testing.T) {
	tmpl := Template{
		ID: "task",
		Fields: []Field{
			{ID: "f-done", Name: "Done", Type: "bool"},
			{ID: "f-title", Name: "Title", Type: "string"},
		},
	}
	assert.Equal(t, "f-title", tmpl.TitleFieldID())

	tmpl.TitleField = "f-done"
	assert.Equal(t, "f-done", tmpl.TitleFieldID())

	f, ok := tmpl.FieldByName("Title")
	require.True(t, ok)
	assert.Equal(t, "f-title", f.ID)

	_, ok = tmpl.FieldByID("missing")
	assert.False(t, ok)
}

func TestInstance_TextRoundTrip(t *testing.T) {
	tests := []struct {
		text string
		want Instance
	}{
		{"a@b", Instance{Node: "a", Parent: "b"}},
		{"a@", Instance{Node: "a"}},
		{"a", Instance{Node: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseInstance(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseInstance("@p")
	assert.Error(t, err)
}

func TestInstance_AsJSONMapKey(t *testing.T) {
	in := map[Instance]bool{{Node: "a", Parent: "b"}: true, {Node: "r"}: true}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a@b":true,"r@":true}`, string(data))

	var out map[Instance]bool
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestSortInstances(t *testing.T) {
	in := []Instance{{Node: "b"}, {Node: "a", Parent: "z"}, {Node: "a", Parent: "c"}}
	SortInstances(in)
	assert.Equal(t, []Instance{{Node: "a", Parent: "c"}, {Node: "a", Parent: "z"}, {Node: "b"}}, in)
}
