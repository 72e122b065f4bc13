package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/outliner/internal/config"
	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/persist"
	"github.com/roach88/outliner/internal/store"
	"github.com/roach88/outliner/internal/template"
)

// env is what a command needs to reach documents: resolved config, a
// logger, the template registry and a workspace over the configured store.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	templates *template.Registry
	ws        *engine.Workspace

	closeStore func() error
	closed     bool
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig resolves defaults, the config file, OUTLINER_ variables and
// the flags the user set on cmd.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes to w at the configured level; --verbose forces debug.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// openService opens the configured backend. The returned func releases it.
func openService(ctx context.Context, sc config.StoreConfig) (persist.Service, func() error, error) {
	switch sc.Driver {
	case "memory":
		return persist.NewMemoryService(), func() error { return nil }, nil
	case "postgres":
		st, err := store.OpenPostgres(ctx, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "sqlite":
		st, err := store.Open(sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// loadTemplates compiles the configured template directory. Without one
// the registry is empty and template ids go unchecked.
func loadTemplates(cfg *config.Config) (*template.Registry, error) {
	if cfg.Templates.Dir == "" {
		return template.NewRegistry(), nil
	}
	return template.LoadDir(cfg.Templates.Dir)
}

// setup builds the env for a command. extra options apply to every session
// after the configured ones.
func setup(opts *RootOptions, cmd *cobra.Command, extra ...engine.Option) (*env, error) {
	ctx := commandContext(cmd)
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	reg, err := loadTemplates(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load templates", err)
	}

	logger.Debug("opening store", "driver", cfg.Store.Driver)
	svc, closeStore, err := openService(ctx, cfg.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	sessionOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithHistoryLimit(cfg.History.Limit),
		engine.WithMetadataDebounce(cfg.Persist.Quiet, cfg.Persist.MaxWait),
		engine.WithReloadThreshold(cfg.Persist.ReloadAfter),
		engine.WithService(svc,
			persist.WithRetries(cfg.Persist.Retries),
			persist.WithBackoff(cfg.Persist.Backoff),
			persist.WithLogger(logger),
		),
	}
	if cfg.Templates.Dir != "" {
		sessionOpts = append(sessionOpts, engine.WithTemplates(reg))
	}
	sessionOpts = append(sessionOpts, extra...)

	return &env{
		cfg:        cfg,
		logger:     logger,
		templates:  reg,
		ws:         engine.NewWorkspace(svc, sessionOpts...),
		closeStore: closeStore,
	}, nil
}

// close flushes every open session, then releases the store. Only the
// first call does anything.
func (e *env) close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true
	flushErr := e.ws.CloseAll(ctx)
	return errors.Join(flushErr, e.closeStore())
}

// openDocument opens id, mapping a missing document to a command error.
func (e *env) openDocument(ctx context.Context, id string) (*engine.Session, error) {
	sess, err := e.ws.Open(ctx, id)
	if err != nil {
		if engine.IsDocumentNotFound(err) {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("document %s not found", id), err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to open document", err)
	}
	for _, n := range sess.Notices() {
		e.logger.Warn(n.Message, "document", id, "code", n.Code)
	}
	return sess, nil
}
