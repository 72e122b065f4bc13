// Package api serves open documents over HTTP as JSON.
//
// Every structural edit goes through the document's engine.Session, so the
// HTTP surface has the same undo history, clipboard and persistence behavior
// as any other client. Instances travel in their "node@parent" text form.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/metrics"
	"github.com/roach88/outliner/internal/syncer"
	"github.com/roach88/outliner/internal/template"
)

// Server represents the web server
type Server struct {
	router    *mux.Router
	ws        *engine.Workspace
	templates *template.Registry
	gatherer  prometheus.Gatherer
	recorder  *metrics.Recorder
	logger    *slog.Logger

	syncInterval time.Duration
	syncClock    func() time.Time

	mu      sync.Mutex
	pollers map[string]*syncer.Poller
}

// Option configures a Server.
type Option func(*Server)

// WithTemplates exposes the template registry at /api/templates.
func WithTemplates(reg *template.Registry) Option {
	return func(s *Server) { s.templates = reg }
}

// WithMetrics serves g at /metrics. rec, when set, has its open-document
// gauge kept current.
func WithMetrics(g prometheus.Gatherer, rec *metrics.Recorder) Option {
	return func(s *Server) {
		s.gatherer = g
		s.recorder = rec
	}
}

// WithSyncInterval sets how often RunSync checks open documents.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithSyncClock replaces time.Now for conflict detection.
func WithSyncClock(now func() time.Time) Option {
	return func(s *Server) { s.syncClock = now }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a server over the documents of ws.
func NewServer(ws *engine.Workspace, opts ...Option) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		ws:           ws,
		logger:       slog.Default(),
		syncInterval: syncer.DefaultInterval,
		pollers:      make(map[string]*syncer.Poller),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/documents", s.handleListDocuments).Methods("GET")
	s.router.HandleFunc("/api/documents", s.handleCreateDocument).Methods("POST")

	doc := s.router.PathPrefix("/api/documents/{id}").Subrouter()
	doc.HandleFunc("", s.handleSnapshot).Methods("GET")
	doc.HandleFunc("", s.handleCloseDocument).Methods("DELETE")
	doc.HandleFunc("/title", s.handleSetTitle).Methods("PUT")
	doc.HandleFunc("/rows", s.handleRows).Methods("GET")
	doc.HandleFunc("/nodes", s.handleFind).Methods("GET")
	doc.HandleFunc("/nodes/{node}/paths", s.handlePaths).Methods("GET")
	doc.HandleFunc("/ops", s.handleOp).Methods("POST")
	doc.HandleFunc("/undo", s.handleUndo).Methods("POST")
	doc.HandleFunc("/redo", s.handleRedo).Methods("POST")
	doc.HandleFunc("/selection", s.handleSelection).Methods("POST")
	doc.HandleFunc("/expansion", s.handleExpansion).Methods("POST")
	doc.HandleFunc("/clipboard", s.handleClipboard).Methods("POST")
	doc.HandleFunc("/clipboard/paste", s.handlePaste).Methods("POST")
	doc.HandleFunc("/notices", s.handleNotices).Methods("GET")
	doc.HandleFunc("/notices", s.handleDrainNotices).Methods("DELETE")
	doc.HandleFunc("/sync", s.handleSyncStatus).Methods("GET")
	doc.HandleFunc("/sync/check", s.handleSyncCheck).Methods("POST")
	doc.HandleFunc("/sync/resolve", s.handleSyncResolve).Methods("POST")

	s.router.HandleFunc("/api/templates", s.handleTemplates).Methods("GET")
	if s.gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(s.gatherer)).Methods("GET")
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunSync checks every open document against the store each interval until
// ctx is cancelled.
func (s *Server) RunSync(ctx context.Context) error {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.CheckAll(ctx)
		}
	}
}

// CheckAll runs one sync check per open document and returns the outcomes.
func (s *Server) CheckAll(ctx context.Context) map[string]syncer.Outcome {
	out := make(map[string]syncer.Outcome)
	for _, id := range s.ws.OpenIDs() {
		p, ok := s.poller(id)
		if !ok {
			continue
		}
		outcome, err := p.Check(ctx)
		if err != nil {
			s.logger.Warn("sync check failed", "document", id, "error", err)
			continue
		}
		out[id] = outcome
	}
	return out
}

// session opens the document named by the route.
func (s *Server) session(r *http.Request) (*engine.Session, error) {
	sess, err := s.ws.Open(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	s.updateOpenGauge()
	return sess, nil
}

// poller returns the document's poller, creating it on first use.
func (s *Server) poller(id string) (*syncer.Poller, bool) {
	sess, ok := s.ws.Session(id)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pollers[id]; ok {
		return p, true
	}
	opts := []syncer.Option{syncer.WithInterval(s.syncInterval), syncer.WithLogger(s.logger)}
	if s.syncClock != nil {
		opts = append(opts, syncer.WithClock(s.syncClock))
	}
	p := syncer.NewPoller(s.ws.Service(), sess, opts...)
	s.pollers[id] = p
	return p, true
}

func (s *Server) dropPoller(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pollers, id)
}

func (s *Server) updateOpenGauge() {
	if s.recorder != nil {
		s.recorder.SetOpenDocuments(len(s.ws.OpenIDs()))
	}
}
