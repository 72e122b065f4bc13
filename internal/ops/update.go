package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// NodePatch is a partial update. Nil fields are left alone.
type NodePatch struct {
	// Name renames the node. When the node's template has a title field the
	// new name is written to that field too.
	Name *string

	// Data sets the given fields; Unset removes fields.
	Data  ir.IRObject
	Unset []string

	IsStarred *bool
}

// UpdateNode patches a node's name, payload and star flag. Setting the
// template's title field re-derives the name. A patch that changes nothing
// is a no-op.
func UpdateNode(g *graph.Graph, env Env, id ir.NodeID, patch NodePatch) (Result, error) {
	e := newEditor(g, env)
	cur, ok := e.node(id)
	if !ok {
		return Result{}, errNodeNotFound(id)
	}

	next := cur.Clone()
	if next.Data == nil {
		next.Data = ir.IRObject{}
	}
	for k, v := range patch.Data {
		next.Data[k] = ir.CloneValue(v)
	}
	for _, k := range patch.Unset {
		delete(next.Data, k)
	}
	if patch.IsStarred != nil {
		next.IsStarred = *patch.IsStarred
	}

	t, hasTemplate := env.template(cur.TemplateID)
	if patch.Name != nil {
		next.Name = NormalizeName(*patch.Name)
		if field := t.TitleFieldID(); hasTemplate && field != "" {
			next.Data[field] = ir.IRString(next.Name)
		}
	} else if hasTemplate {
		if title, ok := titleOf(t, next.Data); ok {
			next.Name = title
		}
	}

	if next.Name == cur.Name && next.IsStarred == cur.IsStarred && ir.EqualValues(next.Data, cur.Data) {
		return noop(g), nil
	}
	m := e.mutable(id)
	m.Name, m.Data, m.IsStarred = next.Name, next.Data, next.IsStarred
	return commit(e.b, nil), nil
}

// ToggleStar flips the star flag of a node.
func ToggleStar(g *graph.Graph, env Env, id ir.NodeID) (Result, error) {
	n, ok := g.Node(id)
	if !ok {
		return Result{}, errNodeNotFound(id)
	}
	starred := !n.IsStarred
	return UpdateNode(g, env, id, NodePatch{IsStarred: &starred})
}

// ChangeTemplate reassigns the template of each node.
//
// Payload fields are reconciled by field name: a value stored under an old
// field whose name also exists in the new template moves to the new field's
// id, everything else is dropped. When the old template cannot be resolved
// (an orphaned template reference) values whose key already matches a new
// field id are kept. The node name is re-derived from the new title field
// when that field holds a string.
func ChangeTemplate(g *graph.Graph, env Env, ids []ir.NodeID, templateID string) (Result, error) {
	if len(ids) == 0 {
		return Result{}, errEmptySelection("change template")
	}
	next, ok := env.template(templateID)
	if !ok {
		return Result{}, errTemplateNotFound(ids[0], templateID)
	}
	for _, id := range ids {
		if _, ok := g.Node(id); !ok {
			return Result{}, errNodeNotFound(id)
		}
	}

	e := newEditor(g, env)
	for _, id := range ids {
		cur, _ := e.node(id)
		data := reconcile(cur.Data, cur.TemplateID, next, env)
		name := cur.Name
		if title, ok := titleOf(next, data); ok {
			name = title
		}
		if cur.TemplateID == templateID && name == cur.Name && ir.EqualValues(data, cur.Data) {
			continue
		}
		m := e.mutable(id)
		m.TemplateID, m.Data, m.Name = templateID, data, name
	}
	return commit(e.b, nil), nil
}

// reconcile maps a payload from the old template onto next by field name.
func reconcile(data ir.IRObject, oldID string, next ir.Template, env Env) ir.IRObject {
	out := ir.IRObject{}
	old, ok := env.template(oldID)
	if !ok {
		for _, f := range next.Fields {
			if v, ok := data[f.ID]; ok {
				out[f.ID] = ir.CloneValue(v)
			}
		}
		return out
	}
	for _, f := range old.Fields {
		v, ok := data[f.ID]
		if !ok {
			continue
		}
		if nf, ok := next.FieldByName(f.Name); ok {
			out[nf.ID] = ir.CloneValue(v)
		}
	}
	return out
}
