package graph

import (
	"cmp"
	"slices"

	"github.com/roach88/outliner/internal/ir"
)

// rootKey is the index bucket holding roots of the forest.
const rootKey ir.NodeID = ""

// Graph is an immutable snapshot of a document's nodes.
//
// Nodes returned by accessors are shared with the snapshot and must be treated
// as read-only. Use Edit to derive a modified snapshot.
type Graph struct {
	nodes    map[ir.NodeID]*ir.Node
	children map[ir.NodeID][]ir.NodeID // sorted; roots under rootKey
	nextPos  int64
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{
		nodes:    map[ir.NodeID]*ir.Node{},
		children: map[ir.NodeID][]ir.NodeID{},
	}
}

// New builds a graph from nodes, assigning document positions in slice order.
// Use it for fixtures and imports; use Load for nodes read back from storage.
func New(nodes []ir.Node) *Graph {
	copied := make([]ir.Node, len(nodes))
	for i, n := range nodes {
		copied[i] = n.Clone()
		copied[i].Position = int64(i)
	}
	return Load(copied)
}

// Load builds a graph from stored nodes, keeping their document positions.
func Load(nodes []ir.Node) *Graph {
	g := &Graph{
		nodes:    make(map[ir.NodeID]*ir.Node, len(nodes)),
		children: make(map[ir.NodeID][]ir.NodeID),
	}
	for _, n := range nodes {
		c := n.Clone()
		g.nodes[c.ID] = &c
		if c.Position >= g.nextPos {
			g.nextPos = c.Position + 1
		}
	}
	for id, n := range g.nodes {
		if n.IsRoot() {
			g.children[rootKey] = append(g.children[rootKey], id)
			continue
		}
		for _, p := range n.ParentIDs {
			g.children[p] = append(g.children[p], id)
		}
	}
	for parent, ids := range g.children {
		sortSiblings(ids, parent, g.nodes)
	}
	return g
}

// sortSiblings orders ids by their sort key at parent, then by position.
func sortSiblings(ids []ir.NodeID, parent ir.NodeID, nodes map[ir.NodeID]*ir.Node) {
	slices.SortStableFunc(ids, func(a, b ir.NodeID) int {
		na, nb := nodes[a], nodes[b]
		if parent != rootKey {
			oa, _ := na.OrderAt(parent)
			ob, _ := nb.OrderAt(parent)
			if c := cmp.Compare(oa, ob); c != 0 {
				return c
			}
		}
		return cmp.Compare(na.Position, nb.Position)
	})
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NextPos returns the position the next inserted node will receive.
func (g *Graph) NextPos() int64 {
	return g.nextPos
}

// Node returns the node with the given id.
func (g *Graph) Node(id ir.NodeID) (*ir.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in document order.
func (g *Graph) Nodes() []*ir.Node {
	out := make([]*ir.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *ir.Node) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// Snapshot returns deep copies of every node in document order, suitable
// for handing to persistence.
func (g *Graph) Snapshot() []ir.Node {
	nodes := g.Nodes()
	out := make([]ir.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Roots returns the ids of nodes without parents, in document order.
func (g *Graph) Roots() []ir.NodeID {
	return slices.Clone(g.children[rootKey])
}

// Children returns the children of parent in sibling order.
// Children("") is equivalent to Roots.
func (g *Graph) Children(parent ir.NodeID) []ir.NodeID {
	return slices.Clone(g.children[parent])
}

// HasChildren reports whether any node lists id as a parent.
func (g *Graph) HasChildren(id ir.NodeID) bool {
	return len(g.children[id]) > 0
}

// HasEdge reports whether inst names an existing occurrence: the node exists
// and either is a root (for a root instance) or lists inst.Parent as a parent.
func (g *Graph) HasEdge(inst ir.Instance) bool {
	_, ok := g.Lookup(inst)
	return ok
}

// Lookup resolves an instance to its node, checking that the parent edge the
// instance names exists.
func (g *Graph) Lookup(inst ir.Instance) (*ir.Node, bool) {
	n, ok := g.nodes[inst.Node]
	if !ok {
		return nil, false
	}
	if inst.IsRoot() {
		return n, n.IsRoot()
	}
	return n, n.ParentIndex(inst.Parent) >= 0
}

// SiblingOrderRange returns the smallest and largest order values among the
// children of parent. ok is false when parent has no children. For the root
// bucket the range is over document positions.
func (g *Graph) SiblingOrderRange(parent ir.NodeID) (lo, hi int64, ok bool) {
	ids := g.children[parent]
	if len(ids) == 0 {
		return 0, 0, false
	}
	for i, id := range ids {
		v := g.sortValue(id, parent)
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi, true
}

func (g *Graph) sortValue(id, parent ir.NodeID) int64 {
	n := g.nodes[id]
	if parent == rootKey {
		return n.Position
	}
	o, _ := n.OrderAt(parent)
	return o
}

// topLevel returns roots plus nodes whose every parent is missing, in
// document order. The latter are orphans and are listed rather than dropped.
func (g *Graph) topLevel() []ir.NodeID {
	out := g.Roots()
	for _, n := range g.Nodes() {
		if !n.IsRoot() && g.allParentsMissing(n) {
			out = append(out, n.ID)
		}
	}
	slices.SortStableFunc(out, func(a, b ir.NodeID) int {
		return cmp.Compare(g.nodes[a].Position, g.nodes[b].Position)
	})
	return out
}

func (g *Graph) allParentsMissing(n *ir.Node) bool {
	for _, p := range n.ParentIDs {
		if _, ok := g.nodes[p]; ok {
			return false
		}
	}
	return len(n.ParentIDs) > 0
}

// topInstance is the instance a top-level node is listed under. Orphans keep
// their first dangling parent so they stay addressable by operations.
func (g *Graph) topInstance(id ir.NodeID) ir.Instance {
	n := g.nodes[id]
	if n.IsRoot() {
		return ir.RootInstance(id)
	}
	return ir.Instance{Node: id, Parent: n.ParentIDs[0]}
}
