package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/queryir"
)

// Service is the storage collaborator. All methods are idempotent and safe to
// retry: creates and updates are upserts, deleting a missing node succeeds.
type Service interface {
	CreateDocument(ctx context.Context, doc ir.Document) error
	UpdateDocument(ctx context.Context, doc ir.Document) error
	LoadDocument(ctx context.Context, id string) (ir.Document, []ir.Node, error)
	ListDocuments(ctx context.Context, owner string) ([]ir.Document, error)
	DocumentUpdatedAt(ctx context.Context, id string) (time.Time, error)

	// FindNodes returns the nodes of q.Document matching q, ordered by
	// position, then id.
	FindNodes(ctx context.Context, q queryir.Select) ([]ir.Node, error)

	CreateNodes(ctx context.Context, docID string, nodes []ir.Node) error
	UpdateNodes(ctx context.Context, docID string, patches []NodePatch) error
	DeleteNodes(ctx context.Context, docID string, ids []ir.NodeID) error

	// ReplaceDocument overwrites the stored document and its nodes wholesale.
	// Used when a conflict is resolved in favour of the local copy.
	ReplaceDocument(ctx context.Context, doc ir.Document, nodes []ir.Node) error
}

// ErrNotFound is returned (wrapped) when a document does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NotFound wraps ErrNotFound with the missing document id.
func NotFound(docID string) error {
	return fmt.Errorf("document %s: %w", docID, ErrNotFound)
}
