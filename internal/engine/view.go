package engine

import (
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/queryir"
)

// Snapshot is a consistent copy of everything a client renders.
type Snapshot struct {
	Document ir.Document     `json:"document"`
	Nodes    []ir.Node       `json:"nodes"`
	Selected []ir.Instance   `json:"selected"`
	Orphans  []graph.Orphan  `json:"orphans,omitempty"`
	Notices  []Notice        `json:"notices,omitempty"`
	History  HistorySnapshot `json:"history"`
}

// HistorySnapshot describes the undo and redo stacks.
type HistorySnapshot struct {
	CanUndo bool   `json:"can_undo"`
	CanRedo bool   `json:"can_redo"`
	Undo    string `json:"undo,omitempty"`
	Redo    string `json:"redo,omitempty"`
}

// --- document metadata ---

// SetTitle renames the document. The write is debounced.
func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed(s.doc.ID)
	}
	title = ops.NormalizeName(title)
	if title == s.doc.Title {
		return nil
	}
	s.doc.Title = title
	s.doc.UpdatedAt = s.now().UTC()
	s.meta.Trigger(s.doc.Clone())
	return nil
}

// viewChanged persists the expansion set. Expansion is view state, so the
// document timestamp is left alone. Caller holds s.mu.
func (s *Session) viewChanged(changed bool) bool {
	if !changed {
		return false
	}
	s.doc.Expanded = s.view.Expanded()
	if !s.closed {
		s.meta.Trigger(s.doc.Clone())
	}
	return true
}

// Expand opens instances in the view.
func (s *Session) Expand(insts ...ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewChanged(s.view.Expand(insts...))
}

// Collapse closes instances in the view.
func (s *Session) Collapse(insts ...ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewChanged(s.view.Collapse(insts...))
}

// ToggleExpanded flips one instance and reports whether it is now expanded.
func (s *Session) ToggleExpanded(inst ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expanded := s.view.ToggleExpanded(inst)
	s.viewChanged(true)
	return expanded
}

// ExpandAll opens every instance that has children.
func (s *Session) ExpandAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewChanged(s.view.ExpandAll(s.graph))
}

// CollapseAll closes everything.
func (s *Session) CollapseAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewChanged(s.view.CollapseAll())
}

// IsExpanded reports whether inst is open.
func (s *Session) IsExpanded(inst ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.IsExpanded(inst)
}

// --- selection ---

// Select replaces the selection.
func (s *Session) Select(insts ...ir.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Select(s.existing(insts)...)
}

// AddToSelection extends the selection.
func (s *Session) AddToSelection(insts ...ir.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.AddToSelection(s.existing(insts)...)
}

// ToggleSelected flips one instance.
func (s *Session) ToggleSelected(inst ir.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph.HasEdge(inst) || s.view.IsSelected(inst) {
		s.view.ToggleSelected(inst)
	}
}

// SelectRange selects the visible rows between from and to inclusive.
func (s *Session) SelectRange(from, to ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SelectRange(s.graph.Flatten(s.view.IsExpanded), from, to)
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ClearSelection()
}

// Selected lists selected instances, sorted.
func (s *Session) Selected() []ir.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Selected()
}

// IsSelected reports whether inst is selected.
func (s *Session) IsSelected(inst ir.Instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.IsSelected(inst)
}

func (s *Session) existing(insts []ir.Instance) []ir.Instance {
	out := make([]ir.Instance, 0, len(insts))
	for _, inst := range insts {
		if s.graph.HasEdge(inst) {
			out = append(out, inst)
		}
	}
	return out
}

// --- reads ---

// Graph returns the current snapshot. Snapshots are immutable.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Document returns a copy of the document metadata.
func (s *Session) Document() ir.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Snapshot returns the document, nodes, selection and history at one
// instant.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Document: s.doc.Clone(),
		Nodes:    s.graph.Snapshot(),
		Selected: s.view.Selected(),
		Orphans:  s.graph.Orphans(s.env.Templates),
		Notices:  s.notices.list(),
		History:  s.historyLocked(),
	}
}

// Rows returns the visible outline: children of collapsed instances are
// skipped.
func (s *Session) Rows() []graph.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Flatten(s.view.IsExpanded)
}

// AllRows returns the fully expanded outline.
func (s *Session) AllRows() []graph.Row {
	return s.Graph().Flatten(nil)
}

// FindNodeAndParent returns a node and the parent of its first instance.
func (s *Session) FindNodeAndParent(id ir.NodeID) (*ir.Node, ir.NodeID, bool) {
	return s.Graph().FindNodeAndParent(id)
}

// Find searches the in-memory nodes with a filter. A limit of 0 returns
// every match.
func (s *Session) Find(filter queryir.Predicate, limit int) ([]ir.Node, error) {
	s.mu.Lock()
	q := queryir.Select{Document: s.doc.ID, Filter: filter, Limit: limit}
	nodes := s.graph.Snapshot()
	s.mu.Unlock()
	if err := queryir.Validate(q); err != nil {
		return nil, err
	}
	return queryir.Apply(q, nodes), nil
}

// Lookup returns the node behind an instance.
func (s *Session) Lookup(inst ir.Instance) (*ir.Node, bool) {
	return s.Graph().Lookup(inst)
}

// SiblingOrderRange returns the lowest and highest order under parent.
func (s *Session) SiblingOrderRange(parent ir.NodeID) (lo, hi int64, ok bool) {
	return s.Graph().SiblingOrderRange(parent)
}

// InstancePaths lists every route from the top of the outline to id.
func (s *Session) InstancePaths(id ir.NodeID) [][]ir.NodeID {
	return s.Graph().InstancePaths(id)
}

// Orphans reports dangling parent and template references.
func (s *Session) Orphans() []graph.Orphan {
	return s.Graph().Orphans(s.env.Templates)
}

// CanUndo reports whether Undo would succeed.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// UndoDescription describes the command Undo would revert.
func (s *Session) UndoDescription() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.UndoDescription()
}

// RedoDescription describes the command Redo would reapply.
func (s *Session) RedoDescription() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.RedoDescription()
}

// Notices lists advisory messages without clearing them.
func (s *Session) Notices() []Notice {
	return s.notices.list()
}

// DrainNotices returns and clears advisory messages.
func (s *Session) DrainNotices() []Notice {
	return s.notices.drain()
}

// PersistenceFailures is the number of consecutive failed writes.
func (s *Session) PersistenceFailures() int {
	return s.notices.consecutiveFailures()
}

// Pending is the number of effects not yet settled.
func (s *Session) Pending() int {
	if s.dispatcher == nil {
		return 0
	}
	return s.dispatcher.Pending()
}

// AddNotice appends an advisory message from a collaborator such as the
// sync poller.
func (s *Session) AddNotice(n Notice) {
	if n.At.IsZero() {
		n.At = s.now().UTC()
	}
	s.notices.add(n)
}

// HistoryState describes the undo and redo stacks.
func (s *Session) HistoryState() HistorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *Session) historyLocked() HistorySnapshot {
	undo, _ := s.history.UndoDescription()
	redo, _ := s.history.RedoDescription()
	return HistorySnapshot{
		CanUndo: s.history.CanUndo(),
		CanRedo: s.history.CanRedo(),
		Undo:    undo,
		Redo:    redo,
	}
}
