package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/persist"
	"github.com/roach88/outliner/internal/selection"
)

// Session is one open document.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized by the session mutex.
type Session struct {
	mu        sync.Mutex
	doc       ir.Document
	graph     *graph.Graph
	history   *History
	view      *selection.State
	clipboard Clipboard
	closed    bool

	env      ops.Env
	now      func() time.Time
	clock    *Clock
	observer Observer
	logger   *slog.Logger

	dispatcher  *persist.Dispatcher
	meta        *persist.Debouncer[ir.Document]
	notices     noticeLog
	reloadAfter int

	startOnce sync.Once
	done      chan struct{}
}

// NewSession opens a document from its stored nodes.
//
// A stored graph containing cycles or dangling references still opens;
// the damage is reported as notices and orphans.
func NewSession(doc ir.Document, nodes []ir.Node, opts ...Option) *Session {
	cfg := newConfig(opts)
	s := &Session{
		doc:     doc.Clone(),
		graph:   graph.Load(nodes),
		history: NewHistory(cfg.historyLimit),
		env: ops.Env{
			Now:        cfg.now,
			IDs:        cfg.ids,
			Templates:  cfg.templates,
			DocumentID: doc.ID,
		},
		now:         cfg.now,
		clock:       NewClock(),
		observer:    cfg.observer,
		logger:      cfg.logger.With("document", doc.ID),
		reloadAfter: cfg.reloadAfter,
		done:        make(chan struct{}),
	}
	s.view = selection.New(s.doc.Expanded)
	if s.view.Retain(s.graph) {
		s.doc.Expanded = s.view.Expanded()
	}
	s.audit()

	if cfg.service != nil {
		dopts := append([]persist.DispatcherOption{}, cfg.dispatch...)
		dopts = append(dopts,
			persist.WithFailureHandler(s.persistFailed),
			persist.WithSuccessHandler(s.persistSucceeded),
			persist.WithLogger(s.logger),
		)
		s.dispatcher = persist.NewDispatcher(cfg.service, dopts...)
	}
	s.meta = persist.NewDebouncer(cfg.quiet, cfg.maxWait, func(d ir.Document) {
		s.submit(persist.DocumentEffect(d))
	})
	return s
}

// audit reports cycles and orphans in a freshly loaded graph.
func (s *Session) audit() {
	if err := graph.VerifyAcyclic(s.graph); err != nil {
		s.logger.Warn("document contains cycles", "error", err)
		s.notices.add(Notice{Level: NoticeWarning, Message: err.Error(), At: s.now().UTC()})
	}
	if orphans := s.graph.Orphans(s.env.Templates); len(orphans) > 0 {
		s.logger.Warn("document has orphaned references", "count", len(orphans))
	}
}

// Start runs the persistence worker until ctx is cancelled or the session
// is closed. Calling it more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		if s.dispatcher == nil {
			close(s.done)
			return
		}
		go func() {
			defer close(s.done)
			if err := s.dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("persistence worker stopped", "error", err)
			}
		}()
	})
}

// Flush writes pending metadata and waits until every submitted effect
// has settled.
func (s *Session) Flush(ctx context.Context) error {
	s.meta.Flush()
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Flush(ctx)
}

// Close flushes pending writes and stops the persistence worker. Further
// edits fail with SESSION_CLOSED.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.meta.Stop()
	if s.dispatcher == nil {
		return nil
	}
	s.startOnce.Do(func() {
		// Never started: run once so Stop drains the queue.
		go func() {
			defer close(s.done)
			_ = s.dispatcher.Run(ctx)
		}()
	})
	s.dispatcher.Stop()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ID returns the document id.
func (s *Session) ID() string {
	return s.doc.ID
}

// --- commands ---

type opFunc func(g *graph.Graph, env ops.Env) (ops.Result, error)

// run executes one operation as a command. A valid request that changes
// nothing returns (nil, nil) and records nothing.
func (s *Session) run(kind Kind, describe func(g *graph.Graph) string, reveal bool, fn opFunc) (*Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSessionClosed(s.doc.ID)
	}
	start := time.Now()
	res, err := fn(s.graph, s.env)
	if err != nil {
		s.logger.Debug("command rejected", "kind", string(kind), "error", err)
		s.observer.CommandRejected(s.doc.ID, kind, err)
		return nil, err
	}
	if res.Noop {
		return nil, nil
	}

	cmd := &Command{
		Seq:         s.clock.Next(),
		Kind:        kind,
		Description: describe(s.graph),
		Changes:     res.Changes,
		Added:       res.Added,
		Removed:     res.Removed,
		Focus:       res.Focus,
	}
	if err := cmd.Execute(s.now().UTC()); err != nil {
		return nil, err
	}
	s.graph = res.Graph
	s.history.Record(cmd)
	s.afterChange(cmd.Changes, cmd.Removed, cmd.Focus, reveal)

	s.logger.Debug("command executed",
		"seq", cmd.Seq,
		"kind", string(kind),
		"changes", len(cmd.Changes.Changes),
	)
	s.observer.CommandApplied(s.doc.ID, cmd, ActionExecute, time.Since(start))
	return cmd, nil
}

// afterChange stamps the document, reconciles view state and schedules
// persistence. Caller holds s.mu.
func (s *Session) afterChange(cs graph.Changeset, removed []ir.Instance, focus *ir.Instance, reveal bool) {
	s.doc.UpdatedAt = s.now().UTC()
	changed := s.view.Prune(removed)
	if reveal && focus != nil && s.view.Reveal(s.graph, *focus) {
		changed = true
	}
	if changed {
		s.doc.Expanded = s.view.Expanded()
	}
	// The trailing document effect carries the current metadata, which
	// supersedes anything the debouncer holds.
	s.meta.Cancel()
	s.submit(persist.EffectsFor(s.doc, cs)...)
}

func (s *Session) submit(effs ...persist.Effect) {
	if s.dispatcher == nil || len(effs) == 0 {
		return
	}
	if !s.dispatcher.Submit(effs...) {
		s.logger.Warn("persistence stopped; effects discarded", "count", len(effs))
	}
}

func (s *Session) persistFailed(eff persist.Effect, err error) {
	n := s.notices.failure(Notice{
		Level:   NoticeWarning,
		Code:    ErrCodePersistenceFailed,
		Message: fmt.Sprintf("saving %s failed: %v", eff.Kind, err),
		At:      s.now().UTC(),
	}, s.reloadAfter)
	s.logger.Warn("persistence failed", "effect", eff.String(), "consecutive", n, "error", err)
	s.observer.EffectSettled(s.doc.ID, eff, err)
}

func (s *Session) persistSucceeded(eff persist.Effect) {
	s.notices.success()
	s.observer.EffectSettled(s.doc.ID, eff, nil)
}

// AddRoot creates a top-level node after every existing root.
func (s *Session) AddRoot(spec ops.NewNode) (*Command, error) {
	return s.run(KindAddRoot,
		func(*graph.Graph) string { return fmt.Sprintf("Add %q", ops.NormalizeName(spec.Name)) },
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.AddRoot(g, env, spec) },
	)
}

// AddChild creates a node as the last child of parent and expands parent.
func (s *Session) AddChild(parent ir.Instance, spec ops.NewNode) (*Command, error) {
	return s.run(KindAddChild,
		func(g *graph.Graph) string {
			return fmt.Sprintf("Add %q under %s", ops.NormalizeName(spec.Name), label(g, parent.Node))
		},
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.AddChild(g, env, parent, spec) },
	)
}

// AddSibling creates a node right after sibling under its contextual parent.
func (s *Session) AddSibling(sibling ir.Instance, spec ops.NewNode) (*Command, error) {
	return s.run(KindAddSibling,
		func(g *graph.Graph) string {
			return fmt.Sprintf("Add %q after %s", ops.NormalizeName(spec.Name), label(g, sibling.Node))
		},
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.AddSibling(g, env, sibling, spec) },
	)
}

// Move relocates one instance and reveals it at its destination.
func (s *Session) Move(req ops.MoveRequest) (*Command, error) {
	return s.run(KindMove,
		func(g *graph.Graph) string { return "Move " + label(g, req.Node.Node) },
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.Move(g, env, req) },
	)
}

// MoveBatch moves several instances to one destination as a single command.
func (s *Session) MoveBatch(nodes []ir.Instance, target ir.Instance, pos ops.Position) (*Command, error) {
	return s.run(KindMove,
		func(g *graph.Graph) string { return "Move " + countLabel(g, len(nodes), firstNode(nodes)) },
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.MoveBatch(g, env, nodes, target, pos)
		},
	)
}

// PasteAsClone gives each node an extra parent edge at the target.
func (s *Session) PasteAsClone(target ir.Instance, pos ops.Position, nodes []ir.NodeID) (*Command, error) {
	return s.run(KindPasteClone,
		func(g *graph.Graph) string { return "Clone " + countLabelIDs(g, nodes) },
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.PasteAsClone(g, env, target, pos, nodes)
		},
	)
}

// Duplicate deep-copies the subtrees rooted at nodes to the target.
func (s *Session) Duplicate(target ir.Instance, pos ops.Position, nodes []ir.NodeID) (*Command, error) {
	return s.run(KindPaste,
		func(g *graph.Graph) string { return "Paste " + countLabelIDs(g, nodes) },
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.Paste(g, env, target, pos, nodes)
		},
	)
}

// Import attaches an external forest with fresh ids.
func (s *Session) Import(target ir.Instance, pos ops.Position, nodes []ir.Node) (*Command, error) {
	return s.run(KindImport,
		func(*graph.Graph) string { return fmt.Sprintf("Import %d nodes", len(nodes)) },
		target != (ir.Instance{}),
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.Import(g, env, target, pos, nodes)
		},
	)
}

// Delete removes instances; nodes left without parents are deleted with
// their orphaned descendants.
func (s *Session) Delete(insts ...ir.Instance) (*Command, error) {
	return s.run(KindDelete,
		func(g *graph.Graph) string { return "Delete " + countLabel(g, len(insts), firstNode(insts)) },
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.DeleteInstances(g, env, insts)
		},
	)
}

// MoveOrder swaps an instance with its neighbour in dir.
func (s *Session) MoveOrder(inst ir.Instance, dir ops.Direction) (*Command, error) {
	return s.run(KindReorder,
		func(g *graph.Graph) string { return fmt.Sprintf("Move %s %s", label(g, inst.Node), dir) },
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.MoveNodeOrder(g, env, inst, dir)
		},
	)
}

// Update patches a node's name, payload or star flag.
func (s *Session) Update(id ir.NodeID, patch ops.NodePatch) (*Command, error) {
	return s.run(KindUpdate,
		func(g *graph.Graph) string { return "Edit " + label(g, id) },
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.UpdateNode(g, env, id, patch) },
	)
}

// ToggleStar flips a node's star flag.
func (s *Session) ToggleStar(id ir.NodeID) (*Command, error) {
	return s.run(KindToggleStar,
		func(g *graph.Graph) string {
			if n, ok := g.Node(id); ok && n.IsStarred {
				return "Unstar " + label(g, id)
			}
			return "Star " + label(g, id)
		},
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) { return ops.ToggleStar(g, env, id) },
	)
}

// ChangeTemplate switches nodes to another template, keeping fields that
// exist under both by name.
func (s *Session) ChangeTemplate(ids []ir.NodeID, templateID string) (*Command, error) {
	return s.run(KindChangeTemplate,
		func(g *graph.Graph) string {
			return fmt.Sprintf("Change template of %s to %s", countLabelIDs(g, ids), templateID)
		},
		false,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.ChangeTemplate(g, env, ids, templateID)
		},
	)
}

// Undo reverts the most recent command.
func (s *Session) Undo() (*Command, error) {
	return s.replay(ActionUndo)
}

// Redo reapplies the most recently undone command.
func (s *Session) Redo() (*Command, error) {
	return s.replay(ActionRedo)
}

func (s *Session) replay(action Action) (*Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSessionClosed(s.doc.ID)
	}
	start := time.Now()

	var (
		cmd  *Command
		ok   bool
		next *graph.Graph
		err  error
	)
	if action == ActionUndo {
		if cmd, ok = s.history.PopUndo(); !ok {
			return nil, errNothingToUndo(s.doc.ID)
		}
		next, err = cmd.Undo(s.graph)
	} else {
		if cmd, ok = s.history.PopRedo(); !ok {
			return nil, errNothingToRedo(s.doc.ID)
		}
		next, err = cmd.Redo(s.graph)
	}
	if err != nil {
		// The snapshot no longer matches the recorded changes.
		s.history.Clear()
		s.logger.Error("history replay failed; history cleared", "action", string(action), "command", cmd.String(), "error", err)
		return nil, err
	}

	s.graph = next
	if action == ActionUndo {
		s.afterChange(cmd.Changes.Invert(), cmd.Added, nil, false)
	} else {
		s.afterChange(cmd.Changes, cmd.Removed, cmd.Focus, false)
	}
	s.logger.Debug("command replayed", "action", string(action), "seq", cmd.Seq, "kind", string(cmd.Kind))
	s.observer.CommandApplied(s.doc.ID, cmd, action, time.Since(start))
	return cmd, nil
}

// Reload replaces the session's state with an external copy, e.g. after
// taking the remote side of a sync conflict. Both history stacks and the
// clipboard are cleared; selection and expansion keep what still exists.
// Nothing is persisted.
func (s *Session) Reload(doc ir.Document, nodes []ir.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := s.view.Selected()
	s.doc = doc.Clone()
	s.graph = graph.Load(nodes)
	s.view = selection.New(s.doc.Expanded)
	s.view.AddToSelection(selected...)
	if s.view.Retain(s.graph) {
		s.doc.Expanded = s.view.Expanded()
	}
	s.history.Clear()
	s.clipboard = Clipboard{}
	s.meta.Cancel()
	s.audit()

	s.notices.success()
	s.notices.add(Notice{Level: NoticeInfo, Message: "document reloaded from storage", At: s.now().UTC()})
	s.logger.Info("document reloaded", "nodes", s.graph.Len())
}

// AdoptTimestamp records remote as the document's modification time
// without writing anything. Used when the stored copy is newer only in its
// timestamp.
func (s *Session) AdoptTimestamp(remote time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remote.After(s.doc.UpdatedAt) {
		s.doc.UpdatedAt = remote.UTC()
	}
}

// --- clipboard ---

// Copy puts instances on the clipboard for a later deep-copy paste.
func (s *Session) Copy(insts ...ir.Instance) error {
	return s.setClipboard(ClipboardCopy, insts)
}

// Cut puts instances on the clipboard; Paste moves them.
func (s *Session) Cut(insts ...ir.Instance) error {
	return s.setClipboard(ClipboardCut, insts)
}

func (s *Session) setClipboard(mode ClipboardMode, insts []ir.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(insts) == 0 {
		return &ops.ValidationError{Code: ops.ErrCodeEmptySelection, Message: mode.String() + " needs at least one node"}
	}
	for _, inst := range insts {
		if !s.graph.HasEdge(inst) {
			return &ops.ValidationError{Code: ops.ErrCodeNoSuchInstance, Message: "no such instance", Node: inst.Node, Ref: string(inst.Parent)}
		}
	}
	s.clipboard = Clipboard{Mode: mode, Instances: append([]ir.Instance(nil), insts...)}
	return nil
}

// Clipboard returns what is currently held.
func (s *Session) Clipboard() Clipboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clipboard{Mode: s.clipboard.Mode, Instances: append([]ir.Instance(nil), s.clipboard.Instances...)}
}

// Paste places the clipboard at the target: copies are deep-duplicated,
// cut instances are moved and the clipboard is emptied.
func (s *Session) Paste(target ir.Instance, pos ops.Position) (*Command, error) {
	clip := s.Clipboard()
	if clip.Empty() {
		return nil, errClipboardEmpty(s.doc.ID)
	}
	if clip.Mode == ClipboardCopy {
		return s.Duplicate(target, pos, clip.Nodes())
	}
	cmd, err := s.run(KindCutPaste,
		func(g *graph.Graph) string {
			return "Move " + countLabel(g, len(clip.Instances), firstNode(clip.Instances))
		},
		true,
		func(g *graph.Graph, env ops.Env) (ops.Result, error) {
			return ops.MoveBatch(g, env, clip.Instances, target, pos)
		},
	)
	if err == nil {
		s.clearClipboardIf(clip)
	}
	return cmd, err
}

// clearClipboardIf empties the clipboard only if it still holds clip, so a
// Cut made while a paste was running survives.
func (s *Session) clearClipboardIf(clip Clipboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboard.Mode == clip.Mode && slices.Equal(s.clipboard.Instances, clip.Instances) {
		s.clipboard = Clipboard{}
	}
}

// PasteClipboardAsClone clones the clipboard's nodes at the target.
func (s *Session) PasteClipboardAsClone(target ir.Instance, pos ops.Position) (*Command, error) {
	clip := s.Clipboard()
	if clip.Empty() {
		return nil, errClipboardEmpty(s.doc.ID)
	}
	return s.PasteAsClone(target, pos, clip.Nodes())
}

func label(g *graph.Graph, id ir.NodeID) string {
	if n, ok := g.Node(id); ok && n.Name != "" {
		return fmt.Sprintf("%q", n.Name)
	}
	return string(id)
}

func countLabel(g *graph.Graph, n int, first ir.NodeID) string {
	if n == 1 {
		return label(g, first)
	}
	return fmt.Sprintf("%d nodes", n)
}

func countLabelIDs(g *graph.Graph, ids []ir.NodeID) string {
	var first ir.NodeID
	if len(ids) > 0 {
		first = ids[0]
	}
	return countLabel(g, len(ids), first)
}

func firstNode(insts []ir.Instance) ir.NodeID {
	if len(insts) == 0 {
		return ""
	}
	return insts[0].Node
}
