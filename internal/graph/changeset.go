package graph

import (
	"fmt"

	"github.com/roach88/outliner/internal/ir"
)

// Change records one node's state before and after an edit.
// Before is nil for a created node, After is nil for a deleted one.
type Change struct {
	ID     ir.NodeID
	Before *ir.Node
	After  *ir.Node
}

// Changeset is the difference between two snapshots. It holds enough of the
// prior state to reconstruct it without storing whole snapshots.
type Changeset struct {
	Changes       []Change
	NextPosBefore int64
	NextPosAfter  int64
}

// Empty reports whether no node changed.
func (cs Changeset) Empty() bool {
	return len(cs.Changes) == 0
}

// Invert returns the changeset that undoes cs. Change order is reversed.
func (cs Changeset) Invert() Changeset {
	out := Changeset{
		Changes:       make([]Change, len(cs.Changes)),
		NextPosBefore: cs.NextPosAfter,
		NextPosAfter:  cs.NextPosBefore,
	}
	for i, c := range cs.Changes {
		out.Changes[len(cs.Changes)-1-i] = Change{ID: c.ID, Before: c.After, After: c.Before}
	}
	return out
}

// Created returns ids of nodes the changeset creates, in change order.
func (cs Changeset) Created() []ir.NodeID {
	var out []ir.NodeID
	for _, c := range cs.Changes {
		if c.Before == nil && c.After != nil {
			out = append(out, c.ID)
		}
	}
	return out
}

// Deleted returns ids of nodes the changeset deletes, in change order.
func (cs Changeset) Deleted() []ir.NodeID {
	var out []ir.NodeID
	for _, c := range cs.Changes {
		if c.Before != nil && c.After == nil {
			out = append(out, c.ID)
		}
	}
	return out
}

// Updated returns ids of nodes present on both sides, in change order.
func (cs Changeset) Updated() []ir.NodeID {
	var out []ir.NodeID
	for _, c := range cs.Changes {
		if c.Before != nil && c.After != nil {
			out = append(out, c.ID)
		}
	}
	return out
}

// Apply replays cs on g. g must be in the changeset's before state for every
// node it touches: a created node must be absent and an updated or deleted
// node present.
func (g *Graph) Apply(cs Changeset) (*Graph, error) {
	b := g.Edit()
	for _, c := range cs.Changes {
		_, exists := b.Node(c.ID)
		switch {
		case c.Before == nil && exists:
			return nil, fmt.Errorf("apply: node %s already exists", c.ID)
		case c.Before != nil && !exists:
			return nil, fmt.Errorf("apply: node %s not found", c.ID)
		}
		if c.After == nil {
			b.Remove(c.ID)
			continue
		}
		n := c.After.Clone()
		b.put(c.ID, &n)
	}
	b.nextPos = cs.NextPosAfter
	next, _ := b.Commit()
	return next, nil
}

// Equal reports whether two snapshots hold the same nodes with the same
// content and positions. Timestamps are ignored.
func Equal(a, b *Graph) bool {
	if a.Len() != b.Len() {
		return false
	}
	for id, na := range a.nodes {
		nb, ok := b.nodes[id]
		if !ok || !sameContent(na, nb) {
			return false
		}
	}
	return true
}

// Diff lists ids whose content differs between a and b (present in only one
// side, or present in both with different content). Timestamps are ignored.
func Diff(a, b *Graph) []ir.NodeID {
	var out []ir.NodeID
	for _, n := range a.Nodes() {
		other, ok := b.nodes[n.ID]
		if !ok || !sameContent(n, other) {
			out = append(out, n.ID)
		}
	}
	for _, n := range b.Nodes() {
		if _, ok := a.nodes[n.ID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}
