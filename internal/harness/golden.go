package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/outliner/internal/ir"
)

// Snapshot is the golden view of a run: the trace without descriptions and
// the final tree.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Tree         []string     `json:"tree"`
}

// toCanonicalMap converts a Snapshot to plain maps and slices, which is
// what ir.MarshalCanonical accepts.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Code != "" {
			m["code"] = ev.Code
		}
		if ev.Focus != "" {
			m["focus"] = ev.Focus
		}
		trace[i] = m
	}
	tree := make([]any, len(s.Tree))
	for i, line := range s.Tree {
		tree[i] = line
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"tree":          tree,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Trace: result.Trace, Tree: result.Tree}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
