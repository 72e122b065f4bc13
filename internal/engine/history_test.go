package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executed(seq int64, desc string) *Command {
	return &Command{Seq: seq, Kind: KindUpdate, Description: desc, State: StateExecuted}
}

func TestHistory_RecordAndPop(t *testing.T) {
	h := NewHistory(10)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	h.Record(executed(1, "first"))
	h.Record(executed(2, "second"))

	desc, ok := h.UndoDescription()
	require.True(t, ok)
	assert.Equal(t, "second", desc)

	cmd, ok := h.PopUndo()
	require.True(t, ok)
	assert.Equal(t, int64(2), cmd.Seq)
	assert.True(t, h.CanRedo())

	desc, ok = h.RedoDescription()
	require.True(t, ok)
	assert.Equal(t, "second", desc)

	cmd, ok = h.PopRedo()
	require.True(t, ok)
	assert.Equal(t, int64(2), cmd.Seq)
	undo, redo := h.Len()
	assert.Equal(t, 2, undo)
	assert.Equal(t, 0, redo)
}

func TestHistory_RecordClearsRedo(t *testing.T) {
	h := NewHistory(10)
	h.Record(executed(1, "a"))
	_, ok := h.PopUndo()
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Record(executed(2, "b"))
	assert.False(t, h.CanRedo())
	_, ok = h.PopRedo()
	assert.False(t, ok)
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := int64(1); i <= 5; i++ {
		h.Record(executed(i, "cmd"))
	}
	undo, _ := h.Len()
	assert.Equal(t, 3, undo)

	var seqs []int64
	for _, c := range h.Undoable() {
		seqs = append(seqs, c.Seq)
	}
	assert.Equal(t, []int64{3, 4, 5}, seqs)
}

func TestHistory_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, NewHistory(0).Limit())
	assert.Equal(t, 7, NewHistory(7).Limit())
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(5)
	h.Record(executed(1, "a"))
	h.Record(executed(2, "b"))
	h.PopUndo()
	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	_, ok := h.UndoDescription()
	assert.False(t, ok)
}
