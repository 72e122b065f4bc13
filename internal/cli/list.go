package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the owner's documents",
		Long: `List the configured owner's documents, most recently modified first.

Example:
  outliner list
  outliner list --owner alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts, cmd)

	e, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	docs, err := e.ws.List(ctx, e.cfg.Owner)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list documents", err)
	}

	return formatter.Emit(docs, func(w io.Writer) {
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Title, d.UpdatedAt.Format(time.RFC3339))
		}
		tw.Flush()
	})
}
