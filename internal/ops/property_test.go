package ops

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// TestRandomEdits_PreserveInvariants drives a long random sequence of
// structural edits and checks after each accepted one that the parent graph
// is acyclic, order and parent lists stay parallel, and the changeset
// inverts back to the prior snapshot.
func TestRandomEdits_PreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	env := testEnv()
	g := tree()
	positions := []Position{PositionChild, PositionChildBottom, PositionSibling}

	pick := func(g *graph.Graph) ir.Instance {
		all := g.Instances()
		return all[rng.Intn(len(all))]
	}

	accepted := 0
	for step := 0; step < 400; step++ {
		var (
			res Result
			err error
		)
		if g.Len() == 0 {
			res, err = AddRoot(g, env, NewNode{})
		} else {
			switch rng.Intn(7) {
			case 0:
				res, err = AddChild(g, env, pick(g), NewNode{})
			case 1:
				res, err = AddSibling(g, env, pick(g), NewNode{})
			case 2:
				res, err = Move(g, env, MoveRequest{
					Node:     pick(g),
					Target:   pick(g),
					Position: positions[rng.Intn(len(positions))],
					AllEdges: rng.Intn(4) == 0,
				})
			case 3:
				res, err = PasteAsClone(g, env, pick(g), positions[rng.Intn(len(positions))], []ir.NodeID{pick(g).Node})
			case 4:
				if g.Len() > 150 {
					res, err = DeleteInstance(g, env, pick(g))
					break
				}
				res, err = Paste(g, env, pick(g), positions[rng.Intn(len(positions))], []ir.NodeID{pick(g).Node})
			case 5:
				if rng.Intn(3) == 0 {
					res, err = DeleteInstance(g, env, pick(g))
				} else {
					res, err = AddRoot(g, env, NewNode{})
				}
			default:
				dir := Up
				if rng.Intn(2) == 0 {
					dir = Down
				}
				res, err = MoveNodeOrder(g, env, pick(g), dir)
			}
		}
		if err != nil {
			require.True(t, IsValidationError(err), "step %d: unexpected error %v", step, err)
			continue
		}
		if res.Noop {
			require.Same(t, g, res.Graph)
			continue
		}

		require.NoError(t, graph.VerifyAcyclic(res.Graph), "step %d", step)
		for _, n := range res.Graph.Nodes() {
			require.Len(t, n.Order, len(n.ParentIDs), "step %d: node %s", step, n.ID)
		}
		require.Empty(t, res.Graph.Orphans(nil), "step %d", step)

		back, err := res.Graph.Apply(res.Changes.Invert())
		require.NoError(t, err)
		require.True(t, graph.Equal(g, back), "step %d: undo law, diff=%v", step, graph.Diff(g, back))

		g = res.Graph
		accepted++
	}
	require.Greater(t, accepted, 100)
}
