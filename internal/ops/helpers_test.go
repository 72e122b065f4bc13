package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/testutil"
)

// tree:
//
//	R
//	├── A
//	│   └── D
//	└── B
//	S
func tree() *graph.Graph {
	return graph.New([]ir.Node{
		testutil.Node("R"),
		testutil.Node("A", "R", 0),
		testutil.Node("B", "R", 1),
		testutil.Node("D", "A", 0),
		testutil.Node("S"),
	})
}

func testEnv() Env {
	return Env{
		Now:        testutil.NewStepClock(time.Time{}, time.Second).Now,
		IDs:        testutil.NewSequenceIDs("new"),
		Templates:  testutil.SampleTemplates(),
		DocumentID: "doc",
	}
}

func at(node, parent string) ir.Instance {
	return ir.Instance{Node: ir.NodeID(node), Parent: ir.NodeID(parent)}
}

func ids(in ...string) []ir.NodeID {
	return testutil.IDs(in...)
}

func orderOf(t *testing.T, g *graph.Graph, id, parent string) int64 {
	t.Helper()
	n, ok := g.Node(ir.NodeID(id))
	require.True(t, ok, "node %s", id)
	o, ok := n.OrderAt(ir.NodeID(parent))
	require.True(t, ok, "node %s has no edge to %s", id, parent)
	return o
}

func parentsOf(t *testing.T, g *graph.Graph, id string) []ir.NodeID {
	t.Helper()
	n, ok := g.Node(ir.NodeID(id))
	require.True(t, ok, "node %s", id)
	return n.ParentIDs
}

// requireOK fails on err and checks the undo inverse law for the result.
func requireOK(t *testing.T, before *graph.Graph, res Result, err error) Result {
	t.Helper()
	require.NoError(t, err)
	if res.Noop {
		return res
	}
	back, err := res.Graph.Apply(res.Changes.Invert())
	require.NoError(t, err)
	assert.True(t, graph.Equal(before, back), "undo must restore the prior graph, diff=%v", graph.Diff(before, back))
	return res
}

// requireRejected checks a validation failure with the given code.
func requireRejected(t *testing.T, code ErrorCode, res Result, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, HasCode(err, code), "want %s, got %v", code, err)
	assert.Nil(t, res.Graph)
}
