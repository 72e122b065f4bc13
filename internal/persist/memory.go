package persist

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/queryir"
)

// MemoryService is an in-process Service. It backs tests and the
// "memory" storage driver, and can be told to fail calls.
type MemoryService struct {
	mu       sync.Mutex
	docs     map[string]ir.Document
	nodes    map[string]map[ir.NodeID]ir.Node
	failNext []error
	failAll  error
	calls    []string
}

// NewMemoryService returns an empty store.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		docs:  make(map[string]ir.Document),
		nodes: make(map[string]map[ir.NodeID]ir.Node),
	}
}

// FailNext makes the next len(errs) calls return errs in order.
func (m *MemoryService) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
}

// FailAlways makes every call return err until cleared with nil.
func (m *MemoryService) FailAlways(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// Calls returns the names of the methods invoked so far, in order.
func (m *MemoryService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Nodes returns the stored nodes of a document sorted by position.
func (m *MemoryService) Nodes(docID string) []ir.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(docID)
}

// Document returns the stored metadata.
func (m *MemoryService) Document(docID string) (ir.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[docID]
	return d.Clone(), ok
}

// call records the invocation and returns an injected failure, if any.
// Caller holds m.mu.
func (m *MemoryService) call(ctx context.Context, name string) error {
	m.calls = append(m.calls, name)
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failAll != nil {
		return m.failAll
	}
	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return err
	}
	return nil
}

func (m *MemoryService) CreateDocument(ctx context.Context, doc ir.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "CreateDocument"); err != nil {
		return err
	}
	m.docs[doc.ID] = doc.Clone()
	if m.nodes[doc.ID] == nil {
		m.nodes[doc.ID] = make(map[ir.NodeID]ir.Node)
	}
	return nil
}

func (m *MemoryService) UpdateDocument(ctx context.Context, doc ir.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "UpdateDocument"); err != nil {
		return err
	}
	if _, ok := m.docs[doc.ID]; !ok {
		return NotFound(doc.ID)
	}
	m.docs[doc.ID] = doc.Clone()
	return nil
}

func (m *MemoryService) LoadDocument(ctx context.Context, id string) (ir.Document, []ir.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "LoadDocument"); err != nil {
		return ir.Document{}, nil, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return ir.Document{}, nil, NotFound(id)
	}
	return doc.Clone(), m.sortedLocked(id), nil
}

func (m *MemoryService) ListDocuments(ctx context.Context, owner string) ([]ir.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "ListDocuments"); err != nil {
		return nil, err
	}
	var out []ir.Document
	for _, d := range m.docs {
		if owner == "" || d.OwnerID == owner {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b ir.Document) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MemoryService) DocumentUpdatedAt(ctx context.Context, id string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "DocumentUpdatedAt"); err != nil {
		return time.Time{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return time.Time{}, NotFound(id)
	}
	return doc.UpdatedAt, nil
}

func (m *MemoryService) FindNodes(ctx context.Context, q queryir.Select) ([]ir.Node, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "FindNodes"); err != nil {
		return nil, err
	}
	if _, ok := m.docs[q.Document]; !ok {
		return []ir.Node{}, nil
	}
	return queryir.Apply(q, m.sortedLocked(q.Document)), nil
}

func (m *MemoryService) CreateNodes(ctx context.Context, docID string, nodes []ir.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "CreateNodes"); err != nil {
		return err
	}
	bucket, err := m.bucketLocked(docID)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		n = n.Clone()
		n.DocumentID = docID
		bucket[n.ID] = n
	}
	return nil
}

func (m *MemoryService) UpdateNodes(ctx context.Context, docID string, patches []NodePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "UpdateNodes"); err != nil {
		return err
	}
	bucket, err := m.bucketLocked(docID)
	if err != nil {
		return err
	}
	for _, p := range patches {
		n, ok := bucket[p.ID]
		if !ok {
			continue
		}
		p.Apply(&n)
		bucket[p.ID] = n
	}
	return nil
}

func (m *MemoryService) DeleteNodes(ctx context.Context, docID string, ids []ir.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "DeleteNodes"); err != nil {
		return err
	}
	bucket, err := m.bucketLocked(docID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(bucket, id)
	}
	return nil
}

func (m *MemoryService) ReplaceDocument(ctx context.Context, doc ir.Document, nodes []ir.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(ctx, "ReplaceDocument"); err != nil {
		return err
	}
	m.docs[doc.ID] = doc.Clone()
	bucket := make(map[ir.NodeID]ir.Node, len(nodes))
	for _, n := range nodes {
		n = n.Clone()
		n.DocumentID = doc.ID
		bucket[n.ID] = n
	}
	m.nodes[doc.ID] = bucket
	return nil
}

func (m *MemoryService) bucketLocked(docID string) (map[ir.NodeID]ir.Node, error) {
	if _, ok := m.docs[docID]; !ok {
		return nil, NotFound(docID)
	}
	bucket := m.nodes[docID]
	if bucket == nil {
		bucket = make(map[ir.NodeID]ir.Node)
		m.nodes[docID] = bucket
	}
	return bucket, nil
}

func (m *MemoryService) sortedLocked(docID string) []ir.Node {
	bucket := m.nodes[docID]
	out := make([]ir.Node, 0, len(bucket))
	for _, n := range bucket {
		out = append(out, n.Clone())
	}
	slices.SortFunc(out, func(a, b ir.Node) int {
		if a.Position != b.Position {
			if a.Position < b.Position {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

var _ Service = (*MemoryService)(nil)
