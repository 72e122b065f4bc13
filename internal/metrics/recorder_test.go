package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/persist"
)

func newRecorder(t *testing.T) (*Recorder, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)
	return r, reg
}

func TestRecorder_Commands(t *testing.T) {
	r, _ := newRecorder(t)
	cmd := &engine.Command{Kind: engine.KindAddChild, Changes: graph.Changeset{Changes: make([]graph.Change, 2)}}

	r.CommandApplied("doc", cmd, engine.ActionExecute, time.Millisecond)
	r.CommandApplied("doc", cmd, engine.ActionUndo, time.Millisecond)
	r.CommandApplied("doc", cmd, engine.ActionExecute, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.commands.WithLabelValues("add-child", "execute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commands.WithLabelValues("add-child", "undo")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestRecorder_Rejections(t *testing.T) {
	r, _ := newRecorder(t)

	r.CommandRejected("doc", engine.KindMove, &ops.ValidationError{Code: ops.ErrCodeCycleDetected})
	r.CommandRejected("doc", engine.KindMove, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejected.WithLabelValues("move", "CYCLE_DETECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejected.WithLabelValues("move", "unknown")))
}

func TestRecorder_Effects(t *testing.T) {
	r, _ := newRecorder(t)

	r.EffectSettled("doc", persist.Effect{Kind: persist.EffectCreate}, nil)
	r.EffectSettled("doc", persist.Effect{Kind: persist.EffectCreate}, errors.New("disk full"))
	r.SetOpenDocuments(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.effects.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.effects.WithLabelValues("create", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.documents))
}

func TestRecorder_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOTHING_TO_UNDO", ErrorCode(&engine.EngineError{Code: engine.ErrCodeNothingToUndo}))
	assert.Equal(t, "NODE_NOT_FOUND", ErrorCode(&ops.ValidationError{Code: ops.ErrCodeNodeNotFound}))
}

func TestHandler(t *testing.T) {
	r, reg := newRecorder(t)
	r.SetOpenDocuments(1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "outliner_open_documents 1")
}
