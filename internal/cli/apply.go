package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/harness"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	KeepGoing bool // continue after a rejected step
}

// ApplyResult is the JSON payload of the apply command.
type ApplyResult struct {
	Document string               `json:"document"`
	Trace    []harness.TraceEvent `json:"trace"`
	Applied  int                  `json:"applied"`
	Rejected int                  `json:"rejected"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <document-id> <steps-file>",
		Short: "Apply a list of operations to a document",
		Long: `Apply operations from a YAML file to a stored document.

The file is a list of steps in the scenario flow format:

  - op: add-child
    target: 0190...@
    node: { name: Groceries }
  - op: undo

Steps run in order through the document's undo history and every change is
written to the store before the command exits. A rejected step stops the run
unless --keep-going is set. Use "-" to read steps from stdin.

Exit codes:
  0 - All steps applied
  1 - A step was rejected or a write failed
  2 - Command error (unreadable file, unknown document, etc.)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "continue after a rejected step")

	return cmd
}

func runApply(opts *ApplyOptions, id, stepsFile string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	var data []byte
	var err error
	if stepsFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(stepsFile)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}
	steps, err := harness.ParseSteps(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid steps", err)
	}

	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	sess, err := e.openDocument(ctx, id)
	if err != nil {
		return err
	}

	result := ApplyResult{Document: id, Trace: []harness.TraceEvent{}}
	firstRejected := -1
	for i, step := range steps {
		ev := harness.Execute(sess, step)
		ev.Seq = int64(i + 1)
		result.Trace = append(result.Trace, ev)
		formatter.VerboseLog("[%d] %s %s %s", ev.Seq, ev.Op, ev.Outcome, ev.Code)

		switch ev.Outcome {
		case harness.OutcomeApplied:
			result.Applied++
		case harness.OutcomeRejected:
			result.Rejected++
			if firstRejected < 0 {
				firstRejected = i
			}
		}
		if ev.Outcome == harness.OutcomeRejected && !opts.KeepGoing {
			break
		}
	}

	if err := e.close(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to write changes", err)
	}
	if n := sess.PersistenceFailures(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d write(s) failed; reload the document before editing again", n))
	}

	if err := formatter.Emit(result, func(w io.Writer) {
		for _, ev := range result.Trace {
			fmt.Fprintf(w, "[%d] %s %s", ev.Seq, ev.Op, ev.Outcome)
			if ev.Code != "" {
				fmt.Fprintf(w, " %s", ev.Code)
			}
			if ev.Description != "" {
				fmt.Fprintf(w, "  %s", ev.Description)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "\n%d applied, %d rejected\n", result.Applied, result.Rejected)
	}); err != nil {
		return err
	}

	if firstRejected >= 0 {
		ev := result.Trace[firstRejected]
		return NewExitError(ExitFailure, fmt.Sprintf("step %d (%s) rejected: %s", ev.Seq, ev.Op, ev.Code))
	}
	return nil
}
