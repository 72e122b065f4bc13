package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/outliner/internal/ir"
)

// Builder accumulates edits against a base snapshot.
//
// Nodes are copied on first write (Mutable, Insert) so the base snapshot is
// never modified. A Builder must not be used after Commit.
type Builder struct {
	base    *Graph
	touched map[ir.NodeID]*ir.Node // nil value: removed
	order   []ir.NodeID            // first-touch order
	nextPos int64
}

// Edit starts a Builder on g.
func (g *Graph) Edit() *Builder {
	return &Builder{
		base:    g,
		touched: make(map[ir.NodeID]*ir.Node),
		nextPos: g.nextPos,
	}
}

// Base returns the snapshot the builder started from.
func (b *Builder) Base() *Graph {
	return b.base
}

// Node returns the current state of id, including pending edits.
// The result must not be modified; use Mutable for that.
func (b *Builder) Node(id ir.NodeID) (*ir.Node, bool) {
	if n, ok := b.touched[id]; ok {
		return n, n != nil
	}
	return b.base.Node(id)
}

// Mutable returns a private copy of id that may be edited in place.
func (b *Builder) Mutable(id ir.NodeID) (*ir.Node, bool) {
	if n, ok := b.touched[id]; ok {
		return n, n != nil
	}
	n, ok := b.base.Node(id)
	if !ok {
		return nil, false
	}
	c := n.Clone()
	b.put(id, &c)
	return &c, true
}

// Insert adds a new node at the end of the document and returns its
// position. It fails if the id is already in use.
func (b *Builder) Insert(n ir.Node) (int64, error) {
	if _, exists := b.Node(n.ID); exists {
		return 0, fmt.Errorf("insert %s: node already exists", n.ID)
	}
	c := n.Clone()
	c.Position = b.nextPos
	b.nextPos++
	b.put(c.ID, &c)
	return c.Position, nil
}

// Remove deletes id. It reports whether the node existed.
func (b *Builder) Remove(id ir.NodeID) bool {
	if _, ok := b.Node(id); !ok {
		return false
	}
	b.put(id, nil)
	return true
}

// NextPos returns the position the next Insert will assign.
func (b *Builder) NextPos() int64 {
	return b.nextPos
}

// AllocPos reserves a fresh document position. Reassigning a node to a fresh
// position moves it after every existing node without colliding with any.
func (b *Builder) AllocPos() int64 {
	p := b.nextPos
	b.nextPos++
	return p
}

func (b *Builder) put(id ir.NodeID, n *ir.Node) {
	if _, seen := b.touched[id]; !seen {
		b.order = append(b.order, id)
	}
	b.touched[id] = n
}

// Children returns the children of parent in sibling order, reflecting
// pending edits.
func (b *Builder) Children(parent ir.NodeID) []ir.NodeID {
	return mergeBucket(b.base.children[parent], parent, b.touched, b.Node)
}

// HasEdge reports whether inst names an existing occurrence, reflecting
// pending edits.
func (b *Builder) HasEdge(inst ir.Instance) bool {
	n, ok := b.Node(inst.Node)
	if !ok {
		return false
	}
	if inst.IsRoot() {
		return n.IsRoot()
	}
	return n.ParentIndex(inst.Parent) >= 0
}

// mergeBucket recomputes one index bucket: base entries not touched, plus
// touched nodes that now hang under parent, re-sorted.
func mergeBucket(
	base []ir.NodeID,
	parent ir.NodeID,
	touched map[ir.NodeID]*ir.Node,
	lookup func(ir.NodeID) (*ir.Node, bool),
) []ir.NodeID {
	out := make([]ir.NodeID, 0, len(base))
	for _, id := range base {
		if _, ok := touched[id]; !ok {
			out = append(out, id)
		}
	}
	for id, n := range touched {
		if n == nil {
			continue
		}
		if (parent == rootKey && n.IsRoot()) || (parent != rootKey && n.ParentIndex(parent) >= 0) {
			out = append(out, id)
		}
	}
	nodes := make(map[ir.NodeID]*ir.Node, len(out))
	for _, id := range out {
		nodes[id], _ = lookup(id)
	}
	sortSiblings(out, parent, nodes)
	return out
}

// Commit produces the new snapshot and the changeset leading to it from the
// base. Edits that leave a node identical to its base state are dropped from
// the changeset.
func (b *Builder) Commit() (*Graph, Changeset) {
	cs := Changeset{NextPosBefore: b.base.nextPos, NextPosAfter: b.nextPos}
	for _, id := range b.order {
		before, _ := b.base.Node(id)
		after := b.touched[id]
		if before == nil && after == nil {
			continue
		}
		if before != nil && after != nil && identical(before, after) {
			continue
		}
		cs.Changes = append(cs.Changes, Change{ID: id, Before: before, After: after})
	}
	if len(cs.Changes) == 0 && cs.NextPosBefore == cs.NextPosAfter {
		return b.base, cs
	}

	g := &Graph{
		nodes:    make(map[ir.NodeID]*ir.Node, len(b.base.nodes)+len(cs.Changes)),
		children: make(map[ir.NodeID][]ir.NodeID, len(b.base.children)),
		nextPos:  b.nextPos,
	}
	for id, n := range b.base.nodes {
		g.nodes[id] = n
	}
	for parent, ids := range b.base.children {
		g.children[parent] = ids
	}

	touched := make(map[ir.NodeID]*ir.Node, len(cs.Changes))
	affected := make(map[ir.NodeID]bool)
	mark := func(n *ir.Node) {
		if n == nil {
			return
		}
		if n.IsRoot() {
			affected[rootKey] = true
		}
		for _, p := range n.ParentIDs {
			affected[p] = true
		}
	}
	for _, c := range cs.Changes {
		touched[c.ID] = c.After
		mark(c.Before)
		mark(c.After)
		if c.After == nil {
			delete(g.nodes, c.ID)
		} else {
			g.nodes[c.ID] = c.After
		}
	}
	lookup := func(id ir.NodeID) (*ir.Node, bool) {
		n, ok := g.nodes[id]
		return n, ok
	}
	for parent := range affected {
		ids := mergeBucket(b.base.children[parent], parent, touched, lookup)
		if len(ids) == 0 {
			delete(g.children, parent)
			continue
		}
		g.children[parent] = ids
	}
	return g, cs
}

// identical compares every field, timestamps included.
func identical(a, b *ir.Node) bool {
	return sameContent(a, b) && a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

// sameContent compares every field except timestamps.
func sameContent(a, b *ir.Node) bool {
	return a.ID == b.ID &&
		a.DocumentID == b.DocumentID &&
		a.Name == b.Name &&
		a.TemplateID == b.TemplateID &&
		a.IsStarred == b.IsStarred &&
		a.Position == b.Position &&
		slices.Equal(a.ParentIDs, b.ParentIDs) &&
		slices.Equal(a.Order, b.Order) &&
		ir.EqualValues(a.Data, b.Data)
}
