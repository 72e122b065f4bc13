package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/persist"
	"github.com/roach88/outliner/internal/queryir"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Limit int
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <document-id> [filter...]",
		Short: "Search a document's nodes",
		Long: `Search the stored nodes of a document.

Filter terms are combined with AND:
  word             name contains word (ASCII case-insensitive)
  name:word        same as word
  is:starred       starred nodes
  template:ID      nodes using template ID
  id:ID            the node with id ID
  -term            negates a term

Results are ordered by creation position. Put negated terms after "--" so
they are not read as flags.

Example:
  outliner find 0190a1b2-... -- milk -is:starred
  outliner find 0190a1b2-... template:task --limit 10`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], strings.Join(args[1:], " "), cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 for all)")

	return cmd
}

func runFind(opts *FindOptions, id, filter string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	pred, err := queryir.ParseFilter(filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	q := queryir.Select{Document: id, Filter: pred, Limit: opts.Limit}
	if err := queryir.Validate(q); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	svc := e.ws.Service()
	if _, err := svc.DocumentUpdatedAt(ctx, id); err != nil {
		if persist.IsNotFound(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("document %s not found", id))
		}
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	nodes, err := svc.FindNodes(ctx, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "search failed", err)
	}

	return formatter.Emit(nodes, func(w io.Writer) {
		if len(nodes) == 0 {
			fmt.Fprintln(w, "No matching nodes.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTEMPLATE\tPARENTS")
		for _, n := range nodes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, displayName(n), n.TemplateID, joinIDs(n.ParentIDs))
		}
		tw.Flush()
	})
}

func displayName(n ir.Node) string {
	if n.IsStarred {
		return n.Name + " [*]"
	}
	return n.Name
}

func joinIDs(ids []ir.NodeID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
