package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/persist"
)

// DefaultInterval is how often Run checks the stored copy.
const DefaultInterval = 30 * time.Second

// Outcome is the result of one Check.
type Outcome string

const (
	// InSync means the stored copy is not newer than the session.
	InSync Outcome = "in-sync"
	// Adopted means only the stored timestamp moved; the session took it.
	Adopted Outcome = "adopted"
	// Conflicted means the stored copy has different content.
	Conflicted Outcome = "conflict"
	// Skipped means local writes were still in flight.
	Skipped Outcome = "skipped"
)

// Resolution picks a side of a conflict.
type Resolution string

const (
	KeepLocal  Resolution = "keep-local"
	TakeRemote Resolution = "take-remote"
)

// ParseResolution parses "keep-local" or "take-remote".
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(s); r {
	case KeepLocal, TakeRemote:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resolution %q (want keep-local or take-remote)", s)
	}
}

// Conflict describes a stored copy that diverged from the session.
type Conflict struct {
	DocumentID string    `json:"document_id"`
	Local      time.Time `json:"local"`
	Remote     time.Time `json:"remote"`
	LocalHash  string    `json:"local_hash"`
	RemoteHash string    `json:"remote_hash"`
	DetectedAt time.Time `json:"detected_at"`
}

// ErrNoConflict is returned by Resolve when nothing is pending.
var ErrNoConflict = errors.New("no pending conflict")

// Poller watches one session's document.
type Poller struct {
	remote   persist.Service
	session  *engine.Session
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	conflict *Conflict
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the Run period.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoller watches s against the stored copy in remote.
func NewPoller(remote persist.Service, s *engine.Session, opts ...Option) *Poller {
	p := &Poller{
		remote:   remote,
		session:  s,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("document", s.ID())
	return p
}

// Conflict returns the pending conflict, if any.
func (p *Poller) Conflict() (Conflict, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conflict == nil {
		return Conflict{}, false
	}
	return *p.conflict, true
}

// Check compares the stored copy with the session once.
func (p *Poller) Check(ctx context.Context) (Outcome, error) {
	if _, pending := p.Conflict(); pending {
		return Conflicted, nil
	}
	if p.session.Pending() > 0 {
		return Skipped, nil
	}

	docID := p.session.ID()
	remoteAt, err := p.remote.DocumentUpdatedAt(ctx, docID)
	if err != nil {
		if persist.IsNotFound(err) {
			return "", engine.NewDocumentNotFound(docID, err)
		}
		return "", fmt.Errorf("check %s: %w", docID, err)
	}
	local := p.session.Document()
	if !remoteAt.After(local.UpdatedAt) {
		return InSync, nil
	}

	_, nodes, err := p.remote.LoadDocument(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", docID, err)
	}
	remoteHash, err := ir.ContentHash(nodes)
	if err != nil {
		return "", fmt.Errorf("hash stored copy: %w", err)
	}
	localHash, err := ir.ContentHash(p.session.Graph().Snapshot())
	if err != nil {
		return "", fmt.Errorf("hash session: %w", err)
	}

	if remoteHash == localHash {
		p.session.AdoptTimestamp(remoteAt)
		p.logger.Debug("adopted stored timestamp", "remote", remoteAt)
		return Adopted, nil
	}

	c := &Conflict{
		DocumentID: docID,
		Local:      local.UpdatedAt,
		Remote:     remoteAt,
		LocalHash:  localHash,
		RemoteHash: remoteHash,
		DetectedAt: p.now().UTC(),
	}
	p.mu.Lock()
	p.conflict = c
	p.mu.Unlock()

	p.session.AddNotice(engine.Notice{
		Level:   engine.NoticeWarning,
		Code:    engine.ErrCodeSyncConflict,
		Message: "the document was changed elsewhere; keep your version or take the stored one",
		At:      c.DetectedAt,
	})
	p.logger.Warn("sync conflict", "local", local.UpdatedAt, "remote", remoteAt)
	return Conflicted, nil
}

// Resolve settles the pending conflict.
func (p *Poller) Resolve(ctx context.Context, r Resolution) error {
	c, ok := p.Conflict()
	if !ok {
		return ErrNoConflict
	}

	switch r {
	case KeepLocal:
		if err := p.session.Flush(ctx); err != nil {
			return err
		}
		doc := p.session.Document()
		doc.UpdatedAt = p.now().UTC()
		if !doc.UpdatedAt.After(c.Remote) {
			doc.UpdatedAt = c.Remote.Add(time.Millisecond)
		}
		if err := p.remote.ReplaceDocument(ctx, doc, p.session.Graph().Snapshot()); err != nil {
			return engine.NewPersistenceError(doc.ID, err)
		}
		p.session.AdoptTimestamp(doc.UpdatedAt)
	case TakeRemote:
		doc, nodes, err := p.remote.LoadDocument(ctx, c.DocumentID)
		if err != nil {
			if persist.IsNotFound(err) {
				return engine.NewDocumentNotFound(c.DocumentID, err)
			}
			return engine.NewPersistenceError(c.DocumentID, err)
		}
		p.session.Reload(doc, nodes)
	default:
		return fmt.Errorf("unknown resolution %q", r)
	}

	p.mu.Lock()
	p.conflict = nil
	p.mu.Unlock()
	p.logger.Info("sync conflict resolved", "resolution", string(r))
	return nil
}

// Run checks on every interval tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("sync check failed", "error", err)
			}
		}
	}
}
