package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Seq, ev.Op, ev.Outcome)
		if ev.Code != "" {
			fmt.Fprintf(&buf, " %s", ev.Code)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(s *engine.Session, result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(s, result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(s *engine.Session, result *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	switch a.Type {
	case AssertTree:
		if got := RenderRows(s.AllRows()); !slices.Equal(got, a.Lines) {
			return fail(formatLines(a.Lines), formatLines(got))
		}
	case AssertVisible:
		if got := RenderRows(s.Rows()); !slices.Equal(got, a.Lines) {
			return fail(formatLines(a.Lines), formatLines(got))
		}
	case AssertParents:
		n, _, ok := s.FindNodeAndParent(ir.NodeID(a.Node))
		if !ok {
			return fail(fmt.Sprintf("node %s with parents %v", a.Node, a.Parents), "node does not exist")
		}
		got := make([]string, len(n.ParentIDs))
		for i, p := range n.ParentIDs {
			got[i] = string(p)
		}
		if !slices.Equal(got, a.Parents) && (len(got) > 0 || len(a.Parents) > 0) {
			return fail(fmt.Sprintf("parents %v", a.Parents), fmt.Sprintf("parents %v", got))
		}
	case AssertHistory:
		h := s.HistoryState()
		if a.CanUndo != nil && *a.CanUndo != h.CanUndo {
			return fail(fmt.Sprintf("can_undo=%t", *a.CanUndo), fmt.Sprintf("can_undo=%t", h.CanUndo))
		}
		if a.CanRedo != nil && *a.CanRedo != h.CanRedo {
			return fail(fmt.Sprintf("can_redo=%t", *a.CanRedo), fmt.Sprintf("can_redo=%t", h.CanRedo))
		}
		if a.Undo != "" && a.Undo != h.Undo {
			return fail(fmt.Sprintf("undo %q", a.Undo), fmt.Sprintf("undo %q", h.Undo))
		}
	case AssertSelected:
		want, err := instances(a.Instances)
		if err != nil {
			return fail("valid instances", err.Error())
		}
		got := s.Selected()
		ir.SortInstances(want)
		ir.SortInstances(got)
		if !slices.Equal(want, got) {
			return fail(fmt.Sprintf("selected %v", want), fmt.Sprintf("selected %v", got))
		}
	case AssertNodes:
		if got := s.Graph().Len(); got != *a.Count {
			return fail(fmt.Sprintf("%d nodes", *a.Count), fmt.Sprintf("%d nodes", got))
		}
	case AssertOrphans:
		if got := len(s.Orphans()); got != *a.Count {
			return fail(fmt.Sprintf("%d orphans", *a.Count), fmt.Sprintf("%d orphans", got))
		}
	case AssertData:
		return assertData(s, a, fail)
	case AssertTraceCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Op == a.Op && (a.Outcome == "" || ev.Outcome == a.Outcome) {
				count++
			}
		}
		if count != *a.Count {
			return fail(fmt.Sprintf("%s %s %d times", a.Op, a.Outcome, *a.Count), fmt.Sprintf("%d times", count))
		}
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a, fail)
	default:
		return fail("known assertion type", a.Type)
	}
	return nil
}

// assertData is a subset match: every expected field must be present with
// an equal value; other fields are ignored.
func assertData(s *engine.Session, a Assertion, fail func(string, string) error) error {
	n, _, ok := s.FindNodeAndParent(ir.NodeID(a.Node))
	if !ok {
		return fail(fmt.Sprintf("node %s", a.Node), "node does not exist")
	}
	want, err := ir.ObjectFromAny(a.Expect)
	if err != nil {
		return fail("a valid payload", err.Error())
	}
	for _, k := range want.SortedKeys() {
		got, ok := n.Data[k]
		if !ok {
			return fail(fmt.Sprintf("field %s", k), "field missing")
		}
		if !ir.EqualValues(got, want[k]) {
			return fail(fmt.Sprintf("%s=%v", k, ir.ToAny(want[k])), fmt.Sprintf("%s=%v", k, ir.ToAny(got)))
		}
	}
	return nil
}

// assertTraceOrder checks that the ops were applied in the given order.
// Other steps may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion, fail func(string, string) error) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Ops) && ev.Outcome == OutcomeApplied && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return fail(fmt.Sprintf("applied in order %v", a.Ops), fmt.Sprintf("stopped before %s", a.Ops[next]))
	}
	return nil
}

func formatLines(lines []string) string {
	if len(lines) == 0 {
		return "(empty)"
	}
	return "\n    " + strings.Join(lines, "\n    ")
}
