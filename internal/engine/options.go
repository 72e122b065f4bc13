package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/persist"
)

// DefaultReloadThreshold is how many consecutive persistence failures make
// a notice recommend reloading.
const DefaultReloadThreshold = 3

// Option configures a Session or Workspace.
type Option func(*config)

type config struct {
	now          func() time.Time
	ids          ops.IDGenerator
	templates    ops.TemplateResolver
	historyLimit int
	observer     Observer
	logger       *slog.Logger
	service      persist.Service
	dispatch     []persist.DispatcherOption
	quiet        time.Duration
	maxWait      time.Duration
	reloadAfter  int
}

func newConfig(opts []Option) config {
	c := config{
		now:          time.Now,
		ids:          UUIDv7Generator{},
		historyLimit: DefaultHistoryLimit,
		observer:     NopObserver{},
		logger:       slog.Default(),
		quiet:        persist.DefaultQuietPeriod,
		maxWait:      persist.DefaultMaxWait,
		reloadAfter:  DefaultReloadThreshold,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithClock replaces time.Now for node and document timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(ids ops.IDGenerator) Option {
	return func(c *config) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithTemplates sets the template resolver. Without one, template ids are
// not checked.
func WithTemplates(t ops.TemplateResolver) Option {
	return func(c *config) {
		c.templates = t
	}
}

// WithHistoryLimit caps the undo stack.
func WithHistoryLimit(n int) Option {
	return func(c *config) {
		c.historyLimit = n
	}
}

// WithObserver receives command and persistence events.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithService persists every edit through svc. Without a service the
// session is in-memory only.
func WithService(svc persist.Service, opts ...persist.DispatcherOption) Option {
	return func(c *config) {
		c.service = svc
		c.dispatch = append(c.dispatch, opts...)
	}
}

// WithMetadataDebounce sets the quiet period and maximum delay for title
// and expansion writes.
func WithMetadataDebounce(quiet, maxWait time.Duration) Option {
	return func(c *config) {
		c.quiet = quiet
		c.maxWait = maxWait
	}
}

// WithReloadThreshold sets how many consecutive persistence failures make
// a notice recommend reloading. Zero disables the recommendation.
func WithReloadThreshold(n int) Option {
	return func(c *config) {
		c.reloadAfter = n
	}
}
