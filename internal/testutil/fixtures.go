package testutil

import (
	"github.com/roach88/outliner/internal/ir"
)

// Node builds a fixture node. edges alternate parent id and order value:
//
//	Node("X", "P1", 0, "P2", 3)
func Node(id string, edges ...any) ir.Node {
	n := ir.Node{ID: ir.NodeID(id), Name: id, Data: ir.IRObject{}}
	for i := 0; i+1 < len(edges); i += 2 {
		n.AddEdge(ir.NodeID(edges[i].(string)), int64(edges[i+1].(int)))
	}
	return n
}

// IDs converts strings to node ids.
func IDs(in ...string) []ir.NodeID {
	out := make([]ir.NodeID, len(in))
	for i, s := range in {
		out[i] = ir.NodeID(s)
	}
	return out
}

// Templates is a map-backed template resolver.
type Templates map[string]ir.Template

// TemplateByID implements ops.TemplateResolver.
func (ts Templates) TemplateByID(id string) (ir.Template, bool) {
	t, ok := ts[id]
	return t, ok
}

// SampleTemplates returns two templates sharing a "Title" field, for
// template-change tests.
func SampleTemplates() Templates {
	return Templates{
		"note": {
			ID:   "note",
			Name: "Note",
			Fields: []ir.Field{
				{ID: "f-title", Name: "Title", Type: "string"},
				{ID: "f-body", Name: "Body", Type: "string"},
			},
		},
		"task": {
			ID:         "task",
			Name:       "Task",
			TitleField: "t-title",
			Fields: []ir.Field{
				{ID: "t-done", Name: "Done", Type: "bool"},
				{ID: "t-title", Name: "Title", Type: "string"},
				{ID: "t-due", Name: "Due", Type: "string"},
			},
		},
	}
}
