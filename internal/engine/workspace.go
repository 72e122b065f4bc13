package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/persist"
)

// Workspace opens documents from one backing service and keeps a session
// per open document.
type Workspace struct {
	svc    persist.Service
	opts   []Option
	cfg    config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewWorkspace returns a workspace over svc. opts apply to every session
// it opens; WithService is added automatically.
func NewWorkspace(svc persist.Service, opts ...Option) *Workspace {
	cfg := newConfig(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &Workspace{
		svc:      svc,
		opts:     append([]Option{WithService(svc)}, opts...),
		cfg:      cfg,
		logger:   cfg.logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Service returns the backing service.
func (w *Workspace) Service() persist.Service {
	return w.svc
}

// Create stores a new empty document and opens it.
func (w *Workspace) Create(ctx context.Context, owner, title string) (*Session, error) {
	now := w.cfg.now().UTC()
	doc := ir.Document{
		ID:        w.cfg.ids.Generate(),
		OwnerID:   owner,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.svc.CreateDocument(ctx, doc); err != nil {
		return nil, NewPersistenceError(doc.ID, err)
	}
	w.logger.Info("document created", "document", doc.ID, "owner", owner)
	return w.open(doc, nil), nil
}

// Open returns the session for id, loading the document on first use.
func (w *Workspace) Open(ctx context.Context, id string) (*Session, error) {
	w.mu.Lock()
	if s, ok := w.sessions[id]; ok {
		w.mu.Unlock()
		return s, nil
	}
	w.mu.Unlock()

	doc, nodes, err := w.svc.LoadDocument(ctx, id)
	if err != nil {
		if persist.IsNotFound(err) {
			return nil, NewDocumentNotFound(id, err)
		}
		return nil, NewPersistenceError(id, err)
	}
	w.logger.Info("document opened", "document", id, "nodes", len(nodes))
	return w.open(doc, nodes), nil
}

func (w *Workspace) open(doc ir.Document, nodes []ir.Node) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A concurrent Open may have won.
	if s, ok := w.sessions[doc.ID]; ok {
		return s
	}
	s := NewSession(doc, nodes, w.opts...)
	s.Start(w.ctx)
	w.sessions[doc.ID] = s
	return s
}

// Session returns an already open session.
func (w *Workspace) Session(id string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	return s, ok
}

// OpenIDs lists the ids of open sessions, sorted.
func (w *Workspace) OpenIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns the owner's documents, most recently modified first.
func (w *Workspace) List(ctx context.Context, owner string) ([]ir.Document, error) {
	docs, err := w.svc.ListDocuments(ctx, owner)
	if err != nil {
		return nil, NewPersistenceError("", err)
	}
	return docs, nil
}

// Close flushes and closes one session.
func (w *Workspace) Close(ctx context.Context, id string) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// CloseAll closes every session and stops the workspace.
func (w *Workspace) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range w.OpenIDs() {
		if err := w.Close(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	w.cancel()
	return errors.Join(errs...)
}
