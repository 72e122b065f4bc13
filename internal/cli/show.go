package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/api"
	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/harness"
	"github.com/roach88/outliner/internal/ir"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	All bool // ignore expansion state
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Document ir.Document            `json:"document"`
	Rows     []api.RowView          `json:"rows"`
	Orphans  []graph.Orphan         `json:"orphans,omitempty"`
	Notices  []engine.Notice        `json:"notices,omitempty"`
	History  engine.HistorySnapshot `json:"history"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print a document's outline",
		Long: `Print a document's outline, two spaces of indent per level.

Only expanded instances show their children unless --all is given. Nodes
with several parents are marked [clone], starred nodes [*], and nodes whose
parents are missing are listed at the top level marked [orphan].

Example:
  outliner show 0190a1b2-... --all`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "show every instance regardless of expansion")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	sess, err := e.openDocument(ctx, id)
	if err != nil {
		return err
	}
	rows := sess.Rows()
	if opts.All {
		rows = sess.AllRows()
	}
	doc := sess.Document()
	result := ShowResult{
		Document: doc,
		Rows:     api.RowViews(sess, rows),
		Orphans:  sess.Orphans(),
		Notices:  sess.Notices(),
		History:  sess.HistoryState(),
	}

	return formatter.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", doc.Title, doc.ID)
		for _, line := range harness.RenderRows(rows) {
			fmt.Fprintf(w, "  %s\n", line)
		}
		if len(rows) == 0 {
			fmt.Fprintln(w, "  (empty)")
		}
		for _, n := range result.Notices {
			fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
		}
	})
}
