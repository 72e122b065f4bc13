package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/roach88/outliner/internal/ir"
)

// CycleError reports parent chains that lead back to their start.
type CycleError struct {
	Cycles [][]ir.NodeID
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		ids := make([]string, len(c))
		for j, id := range c {
			ids[j] = string(id)
		}
		parts[i] = strings.Join(ids, " -> ")
	}
	return fmt.Sprintf("parent graph has %d cycle(s): %s", len(e.Cycles), strings.Join(parts, "; "))
}

// IsCycleError reports whether err is a *CycleError.
func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// VerifyAcyclic audits the whole parent graph. Operations guard each edit
// individually; this catches corrupt data arriving through loads and imports.
// Edges to missing parents are ignored.
func VerifyAcyclic(g *Graph) error {
	dg := simple.NewDirectedGraph()
	ids := make(map[ir.NodeID]int64, g.Len())
	byID := make(map[int64]ir.NodeID, g.Len())
	for i, n := range g.Nodes() {
		ids[n.ID] = int64(i)
		byID[int64(i)] = n.ID
		dg.AddNode(simple.Node(int64(i)))
	}

	var cycles [][]ir.NodeID
	for _, n := range g.Nodes() {
		for _, p := range n.ParentIDs {
			pid, ok := ids[p]
			if !ok {
				continue
			}
			if p == n.ID {
				// simple graphs reject self loops; report them directly.
				cycles = append(cycles, []ir.NodeID{n.ID})
				continue
			}
			if !dg.HasEdgeFromTo(pid, ids[n.ID]) {
				dg.SetEdge(dg.NewEdge(dg.Node(pid), dg.Node(ids[n.ID])))
			}
		}
	}

	if _, err := topo.Sort(dg); err != nil {
		var unorderable topo.Unorderable
		if !errors.As(err, &unorderable) {
			return fmt.Errorf("verify acyclic: %w", err)
		}
		for _, component := range unorderable {
			cycles = append(cycles, componentIDs(component, byID))
		}
	}
	if len(cycles) == 0 {
		return nil
	}
	return &CycleError{Cycles: cycles}
}

func componentIDs(nodes []gonum.Node, byID map[int64]ir.NodeID) []ir.NodeID {
	out := make([]ir.NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = byID[n.ID()]
	}
	slices.Sort(out)
	return out
}
