package engine

import (
	"fmt"
	"time"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// Kind names the structural operation a command wraps.
type Kind string

const (
	KindAddRoot        Kind = "add-root"
	KindAddChild       Kind = "add-child"
	KindAddSibling     Kind = "add-sibling"
	KindMove           Kind = "move"
	KindCutPaste       Kind = "cut-paste"
	KindPasteClone     Kind = "paste-clone"
	KindPaste          Kind = "paste"
	KindImport         Kind = "import"
	KindDelete         Kind = "delete"
	KindReorder        Kind = "reorder"
	KindUpdate         Kind = "update"
	KindToggleStar     Kind = "toggle-star"
	KindChangeTemplate Kind = "change-template"
)

// State is a command's position in its lifecycle.
type State int

const (
	// StatePending is transient: a command is built and executed under the
	// session lock, so callers never observe it.
	StatePending State = iota
	StateExecuted
	StateUndone
	StateRedone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExecuted:
		return "executed"
	case StateUndone:
		return "undone"
	case StateRedone:
		return "redone"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Command is one reversible structural edit.
//
// Changes holds the before and after record of every touched node, which
// is exactly what undo needs; no full snapshot is kept.
type Command struct {
	Seq         int64
	Kind        Kind
	Description string
	Changes     graph.Changeset

	// Added and Removed are the instances the forward edit created and
	// destroyed. Undo swaps their roles.
	Added   []ir.Instance
	Removed []ir.Instance

	// Focus is the instance to reveal after the forward edit.
	Focus *ir.Instance

	State      State
	ExecutedAt time.Time
}

// Execute marks a pending command as applied. The snapshot it produced is
// already in hand from the operation, so nothing is replayed.
func (c *Command) Execute(at time.Time) error {
	if c.State != StatePending {
		return fmt.Errorf("execute %s: command is %s", c.Kind, c.State)
	}
	c.State = StateExecuted
	c.ExecutedAt = at
	return nil
}

// Undo applies the inverse changeset to g.
func (c *Command) Undo(g *graph.Graph) (*graph.Graph, error) {
	if c.State != StateExecuted && c.State != StateRedone {
		return nil, fmt.Errorf("undo %s: command is %s", c.Kind, c.State)
	}
	next, err := g.Apply(c.Changes.Invert())
	if err != nil {
		return nil, fmt.Errorf("undo %s: %w", c.Kind, err)
	}
	c.State = StateUndone
	return next, nil
}

// Redo applies the changeset to g again.
func (c *Command) Redo(g *graph.Graph) (*graph.Graph, error) {
	if c.State != StateUndone {
		return nil, fmt.Errorf("redo %s: command is %s", c.Kind, c.State)
	}
	next, err := g.Apply(c.Changes)
	if err != nil {
		return nil, fmt.Errorf("redo %s: %w", c.Kind, err)
	}
	c.State = StateRedone
	return next, nil
}

// String renders "seq kind: description" for logs.
func (c *Command) String() string {
	return fmt.Sprintf("#%d %s: %s", c.Seq, c.Kind, c.Description)
}
