package ops

import (
	"time"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// editor wraps a builder with placement and timestamp helpers shared by the
// operations.
type editor struct {
	b   *graph.Builder
	env Env
	now time.Time
}

func newEditor(g *graph.Graph, env Env) *editor {
	return &editor{b: g.Edit(), env: env, now: env.now()}
}

// mutable returns a writable copy of id stamped with the edit time. Only call
// it when the node is about to change.
func (e *editor) mutable(id ir.NodeID) *ir.Node {
	n, ok := e.b.Mutable(id)
	if !ok {
		return nil
	}
	n.UpdatedAt = e.now
	return n
}

func (e *editor) node(id ir.NodeID) (*ir.Node, bool) {
	return e.b.Node(id)
}

// orderAt is the sort value of id among the children of parent; for the
// root bucket it is the document position.
func (e *editor) orderAt(id, parent ir.NodeID) int64 {
	n, _ := e.b.Node(id)
	if parent == "" {
		return n.Position
	}
	o, _ := n.OrderAt(parent)
	return o
}

// normalize renumbers the children of parent to 0..n-1 in current sibling
// order when two of them share an order value. Groups without ties are left
// alone.
func (e *editor) normalize(parent ir.NodeID) {
	if parent == "" {
		return
	}
	kids := e.b.Children(parent)
	seen := make(map[int64]bool, len(kids))
	tied := false
	for _, id := range kids {
		o := e.orderAt(id, parent)
		if seen[o] {
			tied = true
			break
		}
		seen[o] = true
	}
	if !tied {
		return
	}
	for i, id := range kids {
		if e.orderAt(id, parent) != int64(i) {
			e.mutable(id).SetOrderAt(parent, int64(i))
		}
	}
}

// openSlot shifts every child of parent whose order is at least at by one,
// leaving order value at free.
func (e *editor) openSlot(parent ir.NodeID, at int64) {
	for _, id := range e.b.Children(parent) {
		if o := e.orderAt(id, parent); o >= at {
			e.mutable(id).SetOrderAt(parent, o+1)
		}
	}
}

// orderTop frees the first slot under parent and returns its order value.
func (e *editor) orderTop(parent ir.NodeID) int64 {
	kids := e.b.Children(parent)
	if len(kids) == 0 {
		return 0
	}
	lo := e.orderAt(kids[0], parent)
	e.openSlot(parent, lo)
	return lo
}

// orderBottom returns an order value after every child of parent.
func (e *editor) orderBottom(parent ir.NodeID) int64 {
	kids := e.b.Children(parent)
	if len(kids) == 0 {
		return 0
	}
	var hi int64
	for i, id := range kids {
		if o := e.orderAt(id, parent); i == 0 || o > hi {
			hi = o
		}
	}
	return hi + 1
}

// orderAfter frees the slot right after anchor under parent and returns it.
// Ties are resequenced first so the slot lands directly behind anchor.
func (e *editor) orderAfter(parent, anchor ir.NodeID) int64 {
	e.normalize(parent)
	at := e.orderAt(anchor, parent) + 1
	e.openSlot(parent, at)
	return at
}

// placeRootAfter gives id the document position right after the root
// anchor. Roots following anchor are moved to fresh positions in their
// current order, which keeps every position unique.
func (e *editor) placeRootAfter(id, anchor ir.NodeID) {
	roots := e.b.Children("")
	e.mutable(id).Position = e.b.AllocPos()
	after := false
	for _, r := range roots {
		if after && r != id {
			e.mutable(r).Position = e.b.AllocPos()
		}
		if r == anchor {
			after = true
		}
	}
}

// placement resolves where a node goes relative to a target instance.
type placement struct {
	parent ir.NodeID // destination parent, "" for root level
	pos    Position
	anchor ir.NodeID // sibling to follow; empty for child positions
}

// resolvePlacement validates target and maps a Position onto a destination.
func (e *editor) resolvePlacement(target ir.Instance, pos Position) (placement, error) {
	if _, ok := e.node(target.Node); !ok {
		return placement{}, errNodeNotFound(target.Node)
	}
	if !e.b.HasEdge(target) {
		return placement{}, errNoSuchInstance(target)
	}
	switch pos {
	case PositionChild, PositionChildBottom:
		return placement{parent: target.Node, pos: pos}, nil
	case PositionSibling:
		return placement{parent: target.Parent, pos: pos, anchor: target.Node}, nil
	default:
		return placement{}, errInvalidPosition(target.Node, "unknown position "+string(pos))
	}
}

// attach adds an edge from id to the placement's parent (or makes id a root
// positioned after the anchor) and returns the instance created. After the
// first node of a batch, callers chain by re-anchoring on the previous one.
func (e *editor) attach(id ir.NodeID, p placement) ir.Instance {
	if p.parent == "" {
		if p.anchor != "" {
			e.placeRootAfter(id, p.anchor)
		}
		return ir.RootInstance(id)
	}
	var order int64
	switch {
	case p.anchor != "":
		order = e.orderAfter(p.parent, p.anchor)
	case p.pos == PositionChild:
		order = e.orderTop(p.parent)
	default:
		order = e.orderBottom(p.parent)
	}
	e.mutable(id).AddEdge(p.parent, order)
	return ir.Instance{Node: id, Parent: p.parent}
}

// chain returns the placement for the next node of a batch placed after prev.
func (p placement) chain(prev ir.NodeID) placement {
	if p.pos == PositionChildBottom || (p.parent == "" && p.anchor == "") {
		return p
	}
	return placement{parent: p.parent, pos: PositionSibling, anchor: prev}
}

// checkAcyclic rejects an edge id → parent when parent is id or one of its
// descendants.
func (e *editor) checkAcyclic(id, parent ir.NodeID) error {
	if parent == "" {
		return nil
	}
	if parent == id || e.b.Base().IsDescendant(id, parent) {
		return errCycle(id, parent)
	}
	return nil
}
