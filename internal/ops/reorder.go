package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// MoveNodeOrder swaps an instance with its adjacent sibling in the given
// direction. Siblings sharing an order value are resequenced first so the
// swap is visible. At either boundary the result is a no-op. Roots swap
// document positions.
func MoveNodeOrder(g *graph.Graph, env Env, inst ir.Instance, dir Direction) (Result, error) {
	e := newEditor(g, env)
	if _, ok := e.node(inst.Node); !ok {
		return Result{}, errNodeNotFound(inst.Node)
	}
	if !e.b.HasEdge(inst) {
		return Result{}, errNoSuchInstance(inst)
	}
	if dir != Up && dir != Down {
		return Result{}, errInvalidPosition(inst.Node, "unknown direction "+string(dir))
	}

	kids := e.b.Children(inst.Parent)
	i := indexOf(kids, inst.Node)
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(kids) {
		return noop(g), nil
	}
	other := kids[j]

	if inst.IsRoot() {
		a, b := e.orderAt(inst.Node, ""), e.orderAt(other, "")
		e.mutable(inst.Node).Position = b
		e.mutable(other).Position = a
		return commit(e.b, &inst), nil
	}

	e.normalize(inst.Parent)
	a, b := e.orderAt(inst.Node, inst.Parent), e.orderAt(other, inst.Parent)
	e.mutable(inst.Node).SetOrderAt(inst.Parent, b)
	e.mutable(other).SetOrderAt(inst.Parent, a)
	return commit(e.b, &inst), nil
}

func indexOf(ids []ir.NodeID, id ir.NodeID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
