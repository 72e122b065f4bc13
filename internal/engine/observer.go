package engine

import (
	"time"

	"github.com/roach88/outliner/internal/persist"
)

// Action says how a command was applied.
type Action string

const (
	ActionExecute Action = "execute"
	ActionUndo    Action = "undo"
	ActionRedo    Action = "redo"
)

// Observer receives session events. Implementations must be safe for
// concurrent use: EffectSettled is called from the persistence worker.
type Observer interface {
	CommandApplied(docID string, cmd *Command, action Action, elapsed time.Duration)
	CommandRejected(docID string, kind Kind, err error)
	EffectSettled(docID string, eff persist.Effect, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) CommandApplied(string, *Command, Action, time.Duration) {}
func (NopObserver) CommandRejected(string, Kind, error)                    {}
func (NopObserver) EffectSettled(string, persist.Effect, error)            {}
