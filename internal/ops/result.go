package ops

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// Result is the outcome of a successful operation.
type Result struct {
	// Graph is the new snapshot. For a no-op it is the input snapshot.
	Graph *graph.Graph

	// Changes leads from the input snapshot to Graph.
	Changes graph.Changeset

	// Added and Removed list instances that appeared or disappeared, sorted.
	// Selection and expansion are pruned with Removed.
	Added   []ir.Instance
	Removed []ir.Instance

	// Focus is the instance the UI should reveal, if any.
	Focus *ir.Instance

	// Noop is set when the request was valid but changed nothing.
	Noop bool
}

func noop(g *graph.Graph) Result {
	return Result{Graph: g, Noop: true}
}

// commit finishes an edit and derives the instance delta from the changeset.
func commit(b *graph.Builder, focus *ir.Instance) Result {
	g, cs := b.Commit()
	if cs.Empty() {
		return noop(b.Base())
	}
	added, removed := InstanceDelta(cs)
	return Result{Graph: g, Changes: cs, Added: added, Removed: removed, Focus: focus}
}

// InstanceDelta lists instances present only after, and only before, the
// changeset.
func InstanceDelta(cs graph.Changeset) (added, removed []ir.Instance) {
	for _, c := range cs.Changes {
		before := instanceSet(c.Before)
		after := instanceSet(c.After)
		for inst := range after {
			if !before[inst] {
				added = append(added, inst)
			}
		}
		for inst := range before {
			if !after[inst] {
				removed = append(removed, inst)
			}
		}
	}
	ir.SortInstances(added)
	ir.SortInstances(removed)
	return added, removed
}

func instanceSet(n *ir.Node) map[ir.Instance]bool {
	if n == nil {
		return nil
	}
	out := make(map[ir.Instance]bool, len(n.ParentIDs)+1)
	for _, inst := range n.Instances() {
		out[inst] = true
	}
	return out
}

func focusOn(id, parent ir.NodeID) *ir.Instance {
	return &ir.Instance{Node: id, Parent: parent}
}
