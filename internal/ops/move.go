package ops

import (
	"slices"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// MoveRequest relocates one instance of a node.
type MoveRequest struct {
	// Node is the instance being moved; its Parent is the edge given up.
	Node ir.Instance

	// Target and Position say where the node lands.
	Target   ir.Instance
	Position Position

	// AllEdges relocates the node entirely: every parent edge is dropped,
	// not only the one Node names. For a clone this collapses it to the
	// single destination.
	AllEdges bool
}

// Move relocates an instance.
//
// The move is rejected when the destination parent is the node itself or
// one of its descendants, when the node already hangs under the destination
// through another edge, and when a single instance of a clone is asked to
// become a root. Moving a node to where it already is yields a no-op result.
func Move(g *graph.Graph, env Env, req MoveRequest) (Result, error) {
	e := newEditor(g, env)
	inst, changed, err := e.move(req)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return noop(g), nil
	}
	return commit(e.b, &inst), nil
}

// MoveBatch moves several instances to one destination as a single edit.
// The first lands at the requested position and the others follow it in
// order. Instances already in place are skipped; the result is a no-op only
// if all of them were.
func MoveBatch(g *graph.Graph, env Env, nodes []ir.Instance, target ir.Instance, pos Position) (Result, error) {
	if len(nodes) == 0 {
		return Result{}, errEmptySelection("move")
	}
	e := newEditor(g, env)
	moved := false
	var first *ir.Instance
	req := MoveRequest{Target: target, Position: pos}
	for _, n := range nodes {
		req.Node = n
		inst, changed, err := e.move(req)
		if err != nil {
			return Result{}, err
		}
		moved = moved || changed
		if first == nil {
			first = &inst
		}
		if pos != PositionChildBottom || inst.IsRoot() {
			req.Target, req.Position = inst, PositionSibling
		}
	}
	if !moved {
		return noop(g), nil
	}
	return commit(e.b, first), nil
}

// move applies one relocation to the editor. It reports the resulting
// instance and whether anything changed.
func (e *editor) move(req MoveRequest) (ir.Instance, bool, error) {
	id := req.Node.Node
	n, ok := e.node(id)
	if !ok {
		return ir.Instance{}, false, errNodeNotFound(id)
	}
	if !e.b.HasEdge(req.Node) {
		return ir.Instance{}, false, errNoSuchInstance(req.Node)
	}
	p, err := e.resolvePlacement(req.Target, req.Position)
	if err != nil {
		return ir.Instance{}, false, err
	}
	if p.anchor == id {
		// Placing a node right after itself.
		return req.Node, false, nil
	}
	if err := e.checkAcyclic(id, p.parent); err != nil {
		return ir.Instance{}, false, err
	}

	keepsOther := !req.AllEdges && p.parent != req.Node.Parent
	if p.parent != "" && keepsOther && n.ParentIndex(p.parent) >= 0 {
		return ir.Instance{}, false, errDuplicateEdge(id, p.parent)
	}

	parentsBefore := slices.Clone(n.ParentIDs)
	siblingsBefore := e.b.Children(p.parent)
	sameParent := !req.AllEdges && !req.Node.IsRoot() && p.parent == req.Node.Parent
	edgeIndex := n.ParentIndex(req.Node.Parent)

	m := e.mutable(id)
	switch {
	case req.AllEdges:
		m.ParentIDs, m.Order = nil, nil
	case !req.Node.IsRoot():
		m.RemoveEdge(req.Node.Parent)
	}
	if p.parent == "" && !m.IsRoot() {
		return ir.Instance{}, false, errInvalidPosition(id, "only a node's last remaining instance can move to the top level")
	}
	inst := e.attach(id, p)
	if sameParent {
		// A reorder under the same parent keeps the edge's slot in ParentIDs.
		restoreEdgeIndex(e.mutable(id), p.parent, edgeIndex)
	}

	after, _ := e.node(id)
	if samePlace(parentsBefore, after.ParentIDs) && slices.Equal(siblingsBefore, e.b.Children(p.parent)) {
		return inst, false, nil
	}
	return inst, true, nil
}

// restoreEdgeIndex moves the edge to parent back to index i.
func restoreEdgeIndex(n *ir.Node, parent ir.NodeID, i int) {
	from := n.ParentIndex(parent)
	if from < 0 || from == i || i < 0 || i >= len(n.ParentIDs) {
		return
	}
	order := n.Order[from]
	n.ParentIDs = slices.Insert(slices.Delete(n.ParentIDs, from, from+1), i, parent)
	n.Order = slices.Insert(slices.Delete(n.Order, from, from+1), i, order)
}

func samePlace(before, after []ir.NodeID) bool {
	a, b := slices.Clone(before), slices.Clone(after)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
