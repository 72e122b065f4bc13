package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// PasteAsClone gives each existing node a new parent edge at the target,
// making it a clone. No node is copied. Nodes are placed in the order given,
// each following the previous.
//
// Cloning is rejected when the destination is the node itself or one of its
// descendants, when the node already hangs under the destination, and at
// the top level (a root has no parent edge to add).
func PasteAsClone(g *graph.Graph, env Env, target ir.Instance, pos Position, nodes []ir.NodeID) (Result, error) {
	if len(nodes) == 0 {
		return Result{}, errEmptySelection("paste as clone")
	}
	e := newEditor(g, env)
	p, err := e.resolvePlacement(target, pos)
	if err != nil {
		return Result{}, err
	}
	if p.parent == "" {
		return Result{}, errInvalidPosition(target.Node, "clones cannot be placed at the top level")
	}

	var first *ir.Instance
	for _, id := range nodes {
		n, ok := e.node(id)
		if !ok {
			return Result{}, errNodeNotFound(id)
		}
		if err := e.checkAcyclic(id, p.parent); err != nil {
			return Result{}, err
		}
		if n.ParentIndex(p.parent) >= 0 {
			return Result{}, errDuplicateEdge(id, p.parent)
		}
		inst := e.attach(id, p)
		if first == nil {
			first = &inst
		}
		p = p.chain(id)
	}
	return commit(e.b, first), nil
}
