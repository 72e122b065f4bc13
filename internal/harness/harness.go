package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/template"
	"github.com/roach88/outliner/internal/testutil"
)

// DocumentID is the id of every scenario document.
const DocumentID = "scenario"

// Run executes a scenario against a fresh in-memory session and returns the
// result. An error means the scenario could not be set up; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	reg, err := loadTemplates(scenario.Templates)
	if err != nil {
		return nil, err
	}
	doc, nodes, err := seed(scenario)
	if err != nil {
		return nil, err
	}

	session := engine.NewSession(doc, nodes,
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Second).Now),
		engine.WithIDGenerator(testutil.NewSequenceIDs("n")),
		engine.WithTemplates(reg),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := NewResult()
	for i, step := range scenario.Flow {
		ev := Execute(session, step)
		ev.Seq = int64(i + 1)
		result.AddTrace(ev)
		if msg := checkExpect(i, step, ev); msg != "" {
			result.AddError(msg)
		}
	}

	result.Tree = RenderRows(session.AllRows())
	for _, msg := range EvaluateAssertions(session, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadTemplates(paths []string) (*template.Registry, error) {
	reg := template.NewRegistry()
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read templates: %w", err)
		}
		ts, err := template.CompileString(string(src), p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile templates: %w", err)
		}
		for _, t := range ts {
			reg.Register(t)
		}
	}
	return reg, nil
}

// seed builds the scenario document. Children are ordered as listed unless
// a node gives explicit order values.
func seed(s *Scenario) (ir.Document, []ir.Node, error) {
	doc := ir.Document{
		ID:        DocumentID,
		OwnerID:   "harness",
		Title:     s.Name,
		CreatedAt: testutil.Epoch,
		UpdatedAt: testutil.Epoch,
	}
	for _, e := range s.Expanded {
		inst, err := ir.ParseInstance(e)
		if err != nil {
			return doc, nil, err
		}
		doc.Expanded = append(doc.Expanded, inst)
	}

	next := make(map[string]int64)
	nodes := make([]ir.Node, 0, len(s.Nodes))
	for i, spec := range s.Nodes {
		data, err := ir.ObjectFromAny(spec.Data)
		if err != nil {
			return doc, nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		n := ir.Node{
			ID:         ir.NodeID(spec.ID),
			DocumentID: DocumentID,
			Name:       spec.Name,
			TemplateID: spec.Template,
			Data:       data,
			Position:   int64(i),
			IsStarred:  spec.Starred,
			CreatedAt:  testutil.Epoch,
			UpdatedAt:  testutil.Epoch,
		}
		for j, p := range spec.Parents {
			order := next[p]
			if len(spec.Order) > 0 {
				order = spec.Order[j]
			}
			next[p] = max(next[p], order) + 1
			n.AddEdge(ir.NodeID(p), order)
		}
		nodes = append(nodes, n)
	}
	return doc, nodes, nil
}

// Execute runs one step against s and reports it as a trace event. Seq is
// left for the caller to assign.
func Execute(s *engine.Session, step Step) TraceEvent {
	ev := TraceEvent{Op: step.Op}
	cmd, isCommand, err := dispatch(s, step)
	switch {
	case err != nil:
		ev.Outcome = OutcomeRejected
		ev.Code = errorCode(err)
	case !isCommand:
		ev.Outcome = OutcomeOK
	case cmd == nil:
		ev.Outcome = OutcomeNoop
	default:
		ev.Outcome = OutcomeApplied
		ev.Description = cmd.Description
		if cmd.Focus != nil && cmd.State == engine.StateExecuted {
			ev.Focus = cmd.Focus.String()
		}
	}
	return ev
}

// dispatch maps a step onto the session. isCommand is false for steps that
// only touch view state or the clipboard.
func dispatch(s *engine.Session, step Step) (cmd *engine.Command, isCommand bool, err error) {
	target, err := optionalInstance(step.Target)
	if err != nil {
		return nil, false, err
	}
	insts, err := instances(step.Instances)
	if err != nil {
		return nil, false, err
	}
	pos := ops.PositionChild
	if step.Position != "" {
		if pos, err = ops.ParsePosition(step.Position); err != nil {
			return nil, false, err
		}
	}
	nodes := make([]ir.NodeID, len(step.Nodes))
	for i, n := range step.Nodes {
		nodes[i] = ir.NodeID(n)
	}

	switch step.Op {
	case "add-root":
		spec, err := newNode(step.Node)
		if err != nil {
			return nil, true, err
		}
		cmd, err = s.AddRoot(spec)
		return cmd, true, err
	case "add-child", "add-sibling":
		spec, err := newNode(step.Node)
		if err != nil {
			return nil, true, err
		}
		if step.Op == "add-child" {
			cmd, err = s.AddChild(target, spec)
		} else {
			cmd, err = s.AddSibling(target, spec)
		}
		return cmd, true, err
	case "move":
		if len(insts) != 1 {
			return nil, true, fmt.Errorf("move takes exactly one instance, got %d", len(insts))
		}
		cmd, err = s.Move(ops.MoveRequest{Node: insts[0], Target: target, Position: pos, AllEdges: step.AllEdges})
	case "move-batch":
		cmd, err = s.MoveBatch(insts, target, pos)
	case "clone":
		cmd, err = s.PasteAsClone(target, pos, nodes)
	case "duplicate":
		cmd, err = s.Duplicate(target, pos, nodes)
	case "delete":
		cmd, err = s.Delete(insts...)
	case "reorder":
		if len(insts) != 1 {
			return nil, true, fmt.Errorf("reorder takes exactly one instance, got %d", len(insts))
		}
		dir, derr := ops.ParseDirection(step.Direction)
		if derr != nil {
			return nil, true, derr
		}
		cmd, err = s.MoveOrder(insts[0], dir)
	case "update":
		if len(nodes) != 1 {
			return nil, true, fmt.Errorf("update takes exactly one node, got %d", len(nodes))
		}
		patch, perr := nodePatch(step.Patch)
		if perr != nil {
			return nil, true, perr
		}
		cmd, err = s.Update(nodes[0], patch)
	case "toggle-star":
		if len(nodes) != 1 {
			return nil, true, fmt.Errorf("toggle-star takes exactly one node, got %d", len(nodes))
		}
		cmd, err = s.ToggleStar(nodes[0])
	case "change-template":
		cmd, err = s.ChangeTemplate(nodes, step.Template)
	case "undo":
		cmd, err = s.Undo()
	case "redo":
		cmd, err = s.Redo()
	case "paste":
		if step.Clone {
			cmd, err = s.PasteClipboardAsClone(target, pos)
		} else {
			cmd, err = s.Paste(target, pos)
		}
	case "copy":
		return nil, false, s.Copy(insts...)
	case "cut":
		return nil, false, s.Cut(insts...)
	case "select":
		s.Select(insts...)
		return nil, false, nil
	case "expand":
		s.Expand(insts...)
		return nil, false, nil
	case "collapse":
		s.Collapse(insts...)
		return nil, false, nil
	case "expand-all":
		s.ExpandAll()
		return nil, false, nil
	case "collapse-all":
		s.CollapseAll()
		return nil, false, nil
	case "set-title":
		return nil, false, s.SetTitle(step.Title)
	default:
		return nil, false, fmt.Errorf("unknown op %q", step.Op)
	}
	return cmd, true, err
}

func optionalInstance(s string) (ir.Instance, error) {
	if s == "" {
		return ir.Instance{}, nil
	}
	return ir.ParseInstance(s)
}

func instances(in []string) ([]ir.Instance, error) {
	out := make([]ir.Instance, 0, len(in))
	for _, s := range in {
		inst, err := ir.ParseInstance(s)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func newNode(spec *NodeSpec) (ops.NewNode, error) {
	if spec == nil {
		return ops.NewNode{}, nil
	}
	data, err := ir.ObjectFromAny(spec.Data)
	if err != nil {
		return ops.NewNode{}, err
	}
	return ops.NewNode{
		ID:         ir.NodeID(spec.ID),
		Name:       spec.Name,
		TemplateID: spec.Template,
		Data:       data,
		IsStarred:  spec.Starred,
	}, nil
}

func nodePatch(spec *PatchSpec) (ops.NodePatch, error) {
	if spec == nil {
		return ops.NodePatch{}, nil
	}
	patch := ops.NodePatch{Name: spec.Name, Unset: spec.Unset, IsStarred: spec.Starred}
	if spec.Data != nil {
		data, err := ir.ObjectFromAny(spec.Data)
		if err != nil {
			return ops.NodePatch{}, err
		}
		patch.Data = data
	}
	return patch, nil
}

// errorCode returns the validation or engine error code of err.
func errorCode(err error) string {
	var ve *ops.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "ERROR"
}

// checkExpect compares a trace event with the step's expect clause and
// returns a failure message, or "".
func checkExpect(i int, step Step, ev TraceEvent) string {
	e := step.Expect
	if e == nil {
		if ev.Outcome == OutcomeRejected {
			return fmt.Sprintf("flow[%d] %s: unexpected rejection %s", i, step.Op, ev.Code)
		}
		return ""
	}
	want := e.Outcome
	if want == "" && e.Error != "" {
		want = OutcomeRejected
	}
	if want != "" && ev.Outcome != want {
		return fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s %s", i, step.Op, want, ev.Outcome, ev.Code)
	}
	if e.Error != "" && ev.Code != e.Error {
		return fmt.Sprintf("flow[%d] %s: expected error %s, got %q", i, step.Op, e.Error, ev.Code)
	}
	if e.Focus != "" {
		want, err := ir.ParseInstance(e.Focus)
		if err != nil || want.String() != ev.Focus {
			return fmt.Sprintf("flow[%d] %s: expected focus %s, got %q", i, step.Op, e.Focus, ev.Focus)
		}
	}
	return ""
}

// RenderRows renders rows as indented lines: two spaces per depth, then
// the node name. Clones are marked [clone], starred nodes [*] and orphans
// listed at top level [orphan].
func RenderRows(rows []graph.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", row.Depth))
		b.WriteString(row.Node.Name)
		if row.Node.IsClone() {
			b.WriteString(" [clone]")
		}
		if row.Node.IsStarred {
			b.WriteString(" [*]")
		}
		if row.Orphan {
			b.WriteString(" [orphan]")
		}
		out[i] = b.String()
	}
	return out
}
