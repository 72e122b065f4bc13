package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/testutil"
)

func commandFor(t *testing.T, res ops.Result) *Command {
	t.Helper()
	require.False(t, res.Noop)
	cmd := &Command{Seq: 1, Kind: KindAddChild, Description: "add", Changes: res.Changes}
	require.NoError(t, cmd.Execute(testutil.Epoch))
	return cmd
}

func TestCommand_UndoRedoRoundTrip(t *testing.T) {
	before := graph.New([]ir.Node{testutil.Node("R")})
	env := ops.Env{Now: testutil.NewStepClock(testutil.Epoch, time.Second).Now, IDs: testutil.NewSequenceIDs("n")}

	res, err := ops.AddChild(before, env, ir.RootInstance("R"), ops.NewNode{Name: "child"})
	require.NoError(t, err)
	cmd := commandFor(t, res)
	assert.Equal(t, StateExecuted, cmd.State)

	undone, err := cmd.Undo(res.Graph)
	require.NoError(t, err)
	assert.True(t, graph.Equal(before, undone))
	assert.Equal(t, StateUndone, cmd.State)

	redone, err := cmd.Redo(undone)
	require.NoError(t, err)
	assert.True(t, graph.Equal(res.Graph, redone))
	assert.Equal(t, StateRedone, cmd.State)

	// A redone command can be undone again.
	_, err = cmd.Undo(redone)
	require.NoError(t, err)
}

func TestCommand_StateGuards(t *testing.T) {
	cmd := &Command{Kind: KindDelete, State: StateExecuted}
	assert.Error(t, cmd.Execute(testutil.Epoch))

	_, err := cmd.Redo(graph.Empty())
	assert.Error(t, err)

	pending := &Command{Kind: KindDelete}
	_, err = pending.Undo(graph.Empty())
	assert.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	cmd := &Command{Seq: 4, Kind: KindToggleStar, Description: "Star \"x\""}
	assert.Equal(t, "#4 toggle-star: Star \"x\"", cmd.String())
	assert.Equal(t, "redone", StateRedone.String())
	assert.Equal(t, "State(9)", State(9).String())
}
