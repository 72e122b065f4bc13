package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
)

// Dispatcher applies effects to a Service in submission order on one worker.
//
// Each effect is attempted up to 1+retries times with linear backoff. An
// effect that still fails is reported to the failure handler and dropped;
// later effects proceed. Nothing is rolled back.
type Dispatcher struct {
	svc     Service
	queue   *effectQueue
	retries int
	backoff time.Duration
	logger  *slog.Logger

	onFailure func(Effect, error)
	onSuccess func(Effect)

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed while inflight == 0
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetries sets how many times a failed effect is retried.
func WithRetries(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithBackoff sets the base delay between attempts; attempt k waits k*base.
func WithBackoff(base time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.backoff = base
	}
}

// WithFailureHandler is called from the worker after an effect exhausts its
// retries.
func WithFailureHandler(fn func(Effect, error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onFailure = fn
	}
}

// WithSuccessHandler is called from the worker after an effect is applied.
func WithSuccessHandler(fn func(Effect)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onSuccess = fn
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher. Call Run to start applying effects.
func NewDispatcher(svc Service, opts ...DispatcherOption) *Dispatcher {
	idle := make(chan struct{})
	close(idle)
	d := &Dispatcher{
		svc:     svc,
		queue:   newEffectQueue(),
		retries: defaultRetries,
		backoff: defaultBackoff,
		logger:  slog.Default(),
		idle:    idle,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit enqueues effects. It never blocks. Returns false once the
// dispatcher is stopped.
func (d *Dispatcher) Submit(effs ...Effect) bool {
	if len(effs) == 0 {
		return true
	}
	d.mu.Lock()
	if d.inflight == 0 {
		d.idle = make(chan struct{})
	}
	d.inflight += len(effs)
	d.mu.Unlock()

	if !d.queue.Enqueue(effs...) {
		d.done(len(effs))
		return false
	}
	return true
}

// Pending returns the number of effects submitted but not yet settled.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight
}

// Flush blocks until every submitted effect has settled (applied or
// reported as failed) or ctx is done.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies effects until ctx is cancelled or Stop is called.
// After Stop, effects already queued are still applied before Run returns.
// On cancellation, queued effects are dropped and reported as failed.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("persist dispatcher starting")

	for {
		eff, ok := d.queue.TryDequeue()
		if ok {
			d.apply(ctx, eff)
			d.done(1)
			continue
		}

		select {
		case <-ctx.Done():
			d.queue.Close()
			d.dropRemaining(ctx.Err())
			d.logger.Debug("persist dispatcher stopping: context cancelled")
			return ctx.Err()
		case <-d.queue.Wait():
			// The signal channel is closed on Stop; exit once drained.
			if d.closed() && d.queue.Len() == 0 {
				d.logger.Debug("persist dispatcher stopping: closed")
				return nil
			}
		}
	}
}

// Stop rejects further submissions and lets Run return once drained.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

func (d *Dispatcher) closed() bool {
	d.queue.mu.Lock()
	defer d.queue.mu.Unlock()
	return d.queue.closed
}

func (d *Dispatcher) apply(ctx context.Context, eff Effect) {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			if werr := sleep(ctx, time.Duration(attempt)*d.backoff); werr != nil {
				err = werr
				break
			}
			d.logger.Debug("retrying effect", "effect", eff.String(), "attempt", attempt, "error", err)
		}
		if err = eff.Apply(ctx, d.svc); err == nil {
			if d.onSuccess != nil {
				d.onSuccess(eff)
			}
			return
		}
	}

	d.logger.Error("persisting effect failed",
		"effect", eff.String(),
		"kind", string(eff.Kind),
		"document", eff.DocumentID,
		"error", err,
	)
	if d.onFailure != nil {
		d.onFailure(eff, err)
	}
}

func (d *Dispatcher) dropRemaining(cause error) {
	rest := d.queue.Drain()
	if len(rest) == 0 {
		return
	}
	d.logger.Warn("dropping unsent effects", "count", len(rest), "error", cause)
	for _, eff := range rest {
		if d.onFailure != nil {
			d.onFailure(eff, cause)
		}
	}
	d.done(len(rest))
}

func (d *Dispatcher) done(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight -= n
	if d.inflight <= 0 {
		d.inflight = 0
		select {
		case <-d.idle:
		default:
			close(d.idle)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
