package engine

// DefaultHistoryLimit caps the undo stack.
const DefaultHistoryLimit = 100

// History holds a session's undo and redo stacks.
//
// The undo stack is bounded: recording past the limit evicts the oldest
// command silently. Recording a new command clears the redo stack.
//
// History is not safe for concurrent use; the owning Session serializes
// access.
type History struct {
	limit int
	undo  []*Command
	redo  []*Command
}

// NewHistory creates a history. A non-positive limit uses DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record pushes an executed command and clears the redo stack.
func (h *History) Record(cmd *Command) {
	h.undo = append(h.undo, cmd)
	if over := len(h.undo) - h.limit; over > 0 {
		clear(h.undo[:over])
		h.undo = h.undo[over:]
	}
	clear(h.redo)
	h.redo = h.redo[:0]
}

// PopUndo removes the most recent command from the undo stack and pushes it
// onto the redo stack.
func (h *History) PopUndo() (*Command, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = nil
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return cmd, true
}

// PopRedo moves the most recently undone command back onto the undo stack.
// The redo stack is not cleared.
func (h *History) PopRedo() (*Command, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = nil
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return cmd, true
}

// CanUndo reports whether the undo stack is non-empty.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDescription describes the command Undo would revert.
func (h *History) UndoDescription() (string, bool) {
	if len(h.undo) == 0 {
		return "", false
	}
	return h.undo[len(h.undo)-1].Description, true
}

// RedoDescription describes the command Redo would reapply.
func (h *History) RedoDescription() (string, bool) {
	if len(h.redo) == 0 {
		return "", false
	}
	return h.redo[len(h.redo)-1].Description, true
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Limit returns the undo stack cap.
func (h *History) Limit() int { return h.limit }

// Undoable lists undo entries, oldest first.
func (h *History) Undoable() []*Command {
	return append([]*Command(nil), h.undo...)
}

// Clear drops both stacks.
func (h *History) Clear() {
	clear(h.undo)
	clear(h.redo)
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}
