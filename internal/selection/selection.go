// Package selection tracks per-instance UI state: which instances are
// selected and which are expanded.
//
// Both sets are keyed by ir.Instance, so each occurrence of a clone has its
// own state. Instances that disappear from the graph are pruned; instances
// that appear are neither selected nor expanded unless an operation asks to
// reveal one.
package selection

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// State holds the selected and expanded instance sets. The zero value is
// ready to use. State is not safe for concurrent use; the owning session
// serializes access.
type State struct {
	selected map[ir.Instance]struct{}
	expanded map[ir.Instance]struct{}
}

// New returns a state with the given instances expanded.
func New(expanded []ir.Instance) *State {
	s := &State{}
	for _, inst := range expanded {
		s.add(&s.expanded, inst)
	}
	return s
}

func (s *State) add(set *map[ir.Instance]struct{}, inst ir.Instance) bool {
	if *set == nil {
		*set = make(map[ir.Instance]struct{})
	}
	if _, ok := (*set)[inst]; ok {
		return false
	}
	(*set)[inst] = struct{}{}
	return true
}

func sorted(set map[ir.Instance]struct{}) []ir.Instance {
	out := make([]ir.Instance, 0, len(set))
	for inst := range set {
		out = append(out, inst)
	}
	ir.SortInstances(out)
	return out
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	out := &State{}
	for inst := range s.selected {
		out.add(&out.selected, inst)
	}
	for inst := range s.expanded {
		out.add(&out.expanded, inst)
	}
	return out
}

// Select replaces the selection.
func (s *State) Select(insts ...ir.Instance) {
	s.selected = nil
	for _, inst := range insts {
		s.add(&s.selected, inst)
	}
}

// AddToSelection extends the selection.
func (s *State) AddToSelection(insts ...ir.Instance) {
	for _, inst := range insts {
		s.add(&s.selected, inst)
	}
}

// ToggleSelected flips one instance in or out of the selection.
func (s *State) ToggleSelected(inst ir.Instance) {
	if _, ok := s.selected[inst]; ok {
		delete(s.selected, inst)
		return
	}
	s.add(&s.selected, inst)
}

// SelectRange selects every row between from and to inclusive, in display
// order. It returns false if either end is not among rows.
func (s *State) SelectRange(rows []graph.Row, from, to ir.Instance) bool {
	i, j := -1, -1
	for k, r := range rows {
		if r.Instance == from {
			i = k
		}
		if r.Instance == to {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return false
	}
	if i > j {
		i, j = j, i
	}
	s.selected = nil
	for _, r := range rows[i : j+1] {
		s.add(&s.selected, r.Instance)
	}
	return true
}

// ClearSelection empties the selection.
func (s *State) ClearSelection() {
	s.selected = nil
}

// IsSelected reports whether inst is selected.
func (s *State) IsSelected(inst ir.Instance) bool {
	_, ok := s.selected[inst]
	return ok
}

// Selected returns the selection, sorted.
func (s *State) Selected() []ir.Instance {
	return sorted(s.selected)
}

// Expand marks instances expanded. It reports whether anything changed.
func (s *State) Expand(insts ...ir.Instance) bool {
	changed := false
	for _, inst := range insts {
		changed = s.add(&s.expanded, inst) || changed
	}
	return changed
}

// Collapse marks instances collapsed. It reports whether anything changed.
func (s *State) Collapse(insts ...ir.Instance) bool {
	changed := false
	for _, inst := range insts {
		if _, ok := s.expanded[inst]; ok {
			delete(s.expanded, inst)
			changed = true
		}
	}
	return changed
}

// ToggleExpanded flips one instance and returns its new state.
func (s *State) ToggleExpanded(inst ir.Instance) bool {
	if s.Collapse(inst) {
		return false
	}
	s.Expand(inst)
	return true
}

// IsExpanded reports whether inst is expanded.
func (s *State) IsExpanded(inst ir.Instance) bool {
	_, ok := s.expanded[inst]
	return ok
}

// Expanded returns the expanded instances, sorted. This is what gets
// persisted with the document.
func (s *State) Expanded() []ir.Instance {
	return sorted(s.expanded)
}

// ExpandAll expands every instance of g that has children.
func (s *State) ExpandAll(g *graph.Graph) bool {
	changed := false
	for _, r := range g.Flatten(nil) {
		if r.HasChildren {
			changed = s.add(&s.expanded, r.Instance) || changed
		}
	}
	return changed
}

// CollapseAll collapses everything.
func (s *State) CollapseAll() bool {
	changed := len(s.expanded) > 0
	s.expanded = nil
	return changed
}

// Prune drops removed instances from both sets. It reports whether the
// expansion set changed.
func (s *State) Prune(removed []ir.Instance) bool {
	changed := false
	for _, inst := range removed {
		delete(s.selected, inst)
		if _, ok := s.expanded[inst]; ok {
			delete(s.expanded, inst)
			changed = true
		}
	}
	return changed
}

// Retain drops every instance g does not contain. Used after a reload, when
// no removal list is available. It reports whether the expansion set changed.
func (s *State) Retain(g *graph.Graph) bool {
	var gone []ir.Instance
	for inst := range s.selected {
		if !g.HasEdge(inst) {
			gone = append(gone, inst)
		}
	}
	for inst := range s.expanded {
		if !g.HasEdge(inst) {
			gone = append(gone, inst)
		}
	}
	return s.Prune(gone)
}

// Reveal expands the ancestors of inst along the route that ends at its
// contextual parent, so the instance becomes visible. It reports whether
// the expansion set changed.
func (s *State) Reveal(g *graph.Graph, inst ir.Instance) bool {
	if inst.IsRoot() || !g.HasEdge(inst) {
		return false
	}
	for _, path := range g.InstancePaths(inst.Node) {
		if len(path) < 2 || path[len(path)-2] != inst.Parent {
			continue
		}
		changed := false
		var parent ir.NodeID
		for i, id := range path[:len(path)-1] {
			if _, ok := g.Node(id); !ok {
				if i == 0 {
					parent = id // dangling top of an orphan route
					continue
				}
				break
			}
			changed = s.add(&s.expanded, ir.Instance{Node: id, Parent: parent}) || changed
			parent = id
		}
		return changed
	}
	return false
}
