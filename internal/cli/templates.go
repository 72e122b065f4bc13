package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/template"
)

// TemplatesOptions holds flags for the templates command.
type TemplatesOptions struct {
	*RootOptions
	Watch bool
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplatesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "templates <dir>",
		Short: "Compile and list node templates",
		Long: `Compile every CUE file in a directory and list the templates it declares.

A template that fails to compile is reported with its file position. With
--watch the directory is recompiled on every change until interrupted.

Exit codes:
  0 - All templates compiled
  1 - A template failed to compile
  2 - Command error (missing directory, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplates(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "recompile on change until interrupted")

	return cmd
}

func runTemplates(opts *TemplatesOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("templates directory not found: %s", dir))
	}

	templates, err := template.CompileDir(dir)
	if err != nil {
		code := "E001"
		if template.IsCompileError(err) {
			code = "E104"
		}
		if ferr := formatter.Error(code, err.Error(), nil); ferr != nil {
			return ferr
		}
		if !opts.Watch {
			return WrapExitError(ExitFailure, "templates failed to compile", err)
		}
	} else if err := formatter.Emit(templates, func(w io.Writer) { printTemplates(w, templates) }); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}
	return watchTemplates(opts, dir, templates, cmd)
}

func printTemplates(w io.Writer, templates []ir.Template) {
	if len(templates) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFIELDS\tTITLE FIELD")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Name, len(t.Fields), t.TitleField)
	}
	tw.Flush()
}

func watchTemplates(opts *TemplatesOptions, dir string, initial []ir.Template, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := template.NewRegistry(initial...)
	err = template.Watch(ctx, dir, reg,
		template.WithWatchLogger(logger),
		template.OnReload(func(n int, err error) {
			if err != nil {
				_ = formatter.Error("E104", err.Error(), nil)
				return
			}
			_ = formatter.Emit(reg.All(), func(w io.Writer) {
				fmt.Fprintf(w, "Reloaded %d template(s)\n", n)
				printTemplates(w, reg.All())
			})
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}
