// Package metrics exports session activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/persist"
)

const namespace = "outliner"

// Recorder implements engine.Observer with Prometheus collectors. Labels
// are bounded: command kinds, actions, error codes and effect kinds.
type Recorder struct {
	commands  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rejected  *prometheus.CounterVec
	effects   *prometheus.CounterVec
	changes   prometheus.Histogram
	documents prometheus.Gauge
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied, by kind and action (execute, undo, redo).",
		}, []string{"kind", "action"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time to apply a command to the in-memory graph.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"action"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands rejected by validation, by kind and error code.",
		}, []string{"kind", "code"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_effects_total",
			Help:      "Persistence effects settled, by kind and result.",
		}, []string{"kind", "result"}),
		changes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_changed_nodes",
			Help:      "Nodes touched per applied command.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_documents",
			Help:      "Documents with an open session.",
		}),
	}
	for _, c := range []prometheus.Collector{r.commands, r.duration, r.rejected, r.effects, r.changes, r.documents} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// CommandApplied implements engine.Observer.
func (r *Recorder) CommandApplied(_ string, cmd *engine.Command, action engine.Action, elapsed time.Duration) {
	r.commands.WithLabelValues(string(cmd.Kind), string(action)).Inc()
	r.duration.WithLabelValues(string(action)).Observe(elapsed.Seconds())
	r.changes.Observe(float64(len(cmd.Changes.Changes)))
}

// CommandRejected implements engine.Observer.
func (r *Recorder) CommandRejected(_ string, kind engine.Kind, err error) {
	r.rejected.WithLabelValues(string(kind), ErrorCode(err)).Inc()
}

// EffectSettled implements engine.Observer.
func (r *Recorder) EffectSettled(_ string, eff persist.Effect, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.effects.WithLabelValues(string(eff.Kind), result).Inc()
}

// SetOpenDocuments records how many sessions are open.
func (r *Recorder) SetOpenDocuments(n int) {
	r.documents.Set(float64(n))
}

// ErrorCode returns the typed code carried by err, or "unknown".
func ErrorCode(err error) string {
	var ve *ops.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "unknown"
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
