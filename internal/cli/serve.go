package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/api"
	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/metrics"
	"github.com/roach88/outliner/internal/template"
)

// shutdownTimeout bounds the final flush of open documents.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documents over HTTP",
		Long: `Serve the configured store over a JSON HTTP API.

Open documents are checked against the store every sync interval so that
edits made elsewhere are picked up or reported as conflicts. Prometheus
metrics are served at /metrics. With --templates-watch the template
directory is recompiled whenever it changes.

Example:
  outliner serve --server-addr :8080 --templates-dir ./templates
  OUTLINER_STORE_DRIVER=postgres OUTLINER_STORE_DSN=postgres://... outliner serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	// Config overrides; see config.Load for the key mapping.
	f := cmd.Flags()
	f.String("server-addr", "", "listen address")
	f.String("templates-dir", "", "directory of CUE template files")
	f.Bool("templates-watch", false, "recompile templates when the directory changes")
	f.Duration("sync-interval", 0, "how often open documents are checked against the store")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.NewRecorder(promReg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	e, err := setup(opts, cmd, engine.WithObserver(rec))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.close(ctx); err != nil {
			e.logger.Error("error closing workspace", "error", err)
		}
	}()

	srv := api.NewServer(e.ws,
		api.WithTemplates(e.templates),
		api.WithMetrics(promReg, rec),
		api.WithSyncInterval(e.cfg.Sync.Interval),
		api.WithLogger(e.logger),
	)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			e.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := srv.RunSync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("sync loop stopped", "error", err)
		}
	}()

	if e.cfg.Templates.Watch && e.cfg.Templates.Dir != "" {
		go func() {
			err := template.Watch(ctx, e.cfg.Templates.Dir, e.templates,
				template.WithWatchLogger(e.logger),
				template.OnReload(func(n int, err error) {
					if err == nil {
						e.logger.Info("templates reloaded", "count", n)
					}
				}),
			)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("template watch stopped", "error", err)
			}
		}()
	}

	e.logger.Info("server starting",
		"addr", e.cfg.Server.Addr,
		"store", e.cfg.Store.Driver,
		"templates", e.templates.Len(),
	)
	if err := srv.ListenAndServe(ctx, e.cfg.Server.Addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	e.logger.Info("server stopped gracefully")
	return nil
}
