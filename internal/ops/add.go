package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// NewNode is the caller-supplied content of a node to create.
type NewNode struct {
	// ID is optional; when empty the environment's generator supplies one.
	ID         ir.NodeID
	Name       string
	TemplateID string
	Data       ir.IRObject
	IsStarred  bool
}

// build validates spec and returns the node to insert, without edges.
func (e *editor) build(spec NewNode) (ir.Node, error) {
	id := spec.ID
	if id == "" {
		id = ir.NodeID(e.env.IDs.Generate())
	}
	if _, exists := e.node(id); exists {
		return ir.Node{}, &ValidationError{Code: ErrCodeDuplicateID, Message: "id already in use", Node: id}
	}
	data := spec.Data
	if data == nil {
		data = ir.IRObject{}
	}
	n := ir.Node{
		ID:         id,
		DocumentID: e.env.DocumentID,
		Name:       NormalizeName(spec.Name),
		TemplateID: spec.TemplateID,
		Data:       ir.CloneValue(data).(ir.IRObject),
		IsStarred:  spec.IsStarred,
		CreatedAt:  e.now,
		UpdatedAt:  e.now,
	}
	if spec.TemplateID != "" && e.env.Templates != nil {
		t, ok := e.env.template(spec.TemplateID)
		if !ok {
			return ir.Node{}, errTemplateNotFound(id, spec.TemplateID)
		}
		if n.Name == "" {
			if title, ok := titleOf(t, n.Data); ok {
				n.Name = title
			}
		}
	}
	return n, nil
}

// AddRoot creates a new top-level node after every existing root.
func AddRoot(g *graph.Graph, env Env, spec NewNode) (Result, error) {
	e := newEditor(g, env)
	n, err := e.build(spec)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.b.Insert(n); err != nil {
		return Result{}, err
	}
	return commit(e.b, focusOn(n.ID, "")), nil
}

// AddChild creates a node as the last child of parent. parent is the
// instance of the parent node being viewed; its own contextual parent only
// serves to validate that the occurrence exists.
func AddChild(g *graph.Graph, env Env, parent ir.Instance, spec NewNode) (Result, error) {
	e := newEditor(g, env)
	p, err := e.resolvePlacement(parent, PositionChildBottom)
	if err != nil {
		return Result{}, err
	}
	n, err := e.build(spec)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.b.Insert(n); err != nil {
		return Result{}, err
	}
	inst := e.attach(n.ID, p)
	return commit(e.b, &inst), nil
}

// AddSibling creates a node directly after sibling under the sibling's
// contextual parent. Following siblings are resequenced to make room, so
// repeated calls that each follow the previously added node keep insertion
// order. A root sibling yields a new root placed after it.
func AddSibling(g *graph.Graph, env Env, sibling ir.Instance, spec NewNode) (Result, error) {
	e := newEditor(g, env)
	p, err := e.resolvePlacement(sibling, PositionSibling)
	if err != nil {
		return Result{}, err
	}
	n, err := e.build(spec)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.b.Insert(n); err != nil {
		return Result{}, err
	}
	inst := e.attach(n.ID, p)
	return commit(e.b, &inst), nil
}
