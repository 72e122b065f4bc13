package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <title>",
		Short: "Create an empty document",
		Long: `Create an empty document owned by the configured owner and print its id.

Example:
  outliner init "Reading list"
  outliner init Inbox --store-dsn ./notes.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, title string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts, cmd)

	e, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	sess, err := e.ws.Create(ctx, e.cfg.Owner, title)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create document", err)
	}
	doc := sess.Document()
	if err := e.close(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to flush document", err)
	}

	return formatter.Emit(doc, func(w io.Writer) {
		fmt.Fprintf(w, "Created document %s (%q)\n", doc.ID, doc.Title)
	})
}
