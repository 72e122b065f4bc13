package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// DeleteInstance removes exactly one occurrence of a node: the edge to the
// instance's parent. A clone that keeps another edge survives. When the last
// edge goes (or the instance is a root) the node is deleted, and so is every
// descendant left without any parent edge. Descendants still reachable
// through another parent survive with the dangling edge removed.
func DeleteInstance(g *graph.Graph, env Env, inst ir.Instance) (Result, error) {
	return DeleteInstances(g, env, []ir.Instance{inst})
}

// DeleteInstances deletes several instances as one edit. Instances that
// disappear as a consequence of an earlier deletion in the same batch are
// skipped.
func DeleteInstances(g *graph.Graph, env Env, insts []ir.Instance) (Result, error) {
	if len(insts) == 0 {
		return Result{}, errEmptySelection("delete")
	}
	for _, inst := range insts {
		if _, ok := g.Node(inst.Node); !ok {
			return Result{}, errNodeNotFound(inst.Node)
		}
		if !g.HasEdge(inst) {
			return Result{}, errNoSuchInstance(inst)
		}
	}
	e := newEditor(g, env)
	focus := neighbour(g, insts[0])
	for _, inst := range insts {
		if !e.b.HasEdge(inst) {
			continue
		}
		if !inst.IsRoot() {
			n := e.mutable(inst.Node)
			n.RemoveEdge(inst.Parent)
			if !n.IsRoot() {
				continue
			}
		}
		e.cascade(inst.Node, map[ir.NodeID]bool{})
	}
	if focus != nil && !e.b.HasEdge(*focus) {
		focus = nil
	}
	return commit(e.b, focus), nil
}

// cascade deletes id and strips its edge from each child, recursing into
// children left with no parent.
func (e *editor) cascade(id ir.NodeID, visiting map[ir.NodeID]bool) {
	if visiting[id] {
		return
	}
	visiting[id] = true
	kids := e.b.Children(id)
	e.b.Remove(id)
	for _, child := range kids {
		c := e.mutable(child)
		if c == nil {
			continue
		}
		c.RemoveEdge(id)
		if c.IsRoot() {
			e.cascade(child, visiting)
		}
	}
}

// neighbour picks the instance to focus after inst goes away: the previous
// sibling, else the next one, else the parent.
func neighbour(g *graph.Graph, inst ir.Instance) *ir.Instance {
	kids := g.Children(inst.Parent)
	for i, id := range kids {
		if id != inst.Node {
			continue
		}
		switch {
		case i > 0:
			return focusOn(kids[i-1], inst.Parent)
		case i+1 < len(kids):
			return focusOn(kids[i+1], inst.Parent)
		}
	}
	if inst.IsRoot() {
		return nil
	}
	if _, parent, ok := g.FindNodeAndParent(inst.Parent); ok {
		return focusOn(inst.Parent, parent)
	}
	return nil
}
