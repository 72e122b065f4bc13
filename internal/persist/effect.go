package persist

import (
	"context"
	"fmt"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// EffectKind distinguishes effect batches.
type EffectKind string

const (
	EffectCreate   EffectKind = "create"
	EffectUpdate   EffectKind = "update"
	EffectDelete   EffectKind = "delete"
	EffectDocument EffectKind = "document"
)

// Effect is one deferred storage call.
type Effect struct {
	Kind       EffectKind
	DocumentID string
	Nodes      []ir.Node    // create
	Patches    []NodePatch  // update
	IDs        []ir.NodeID  // delete
	Document   *ir.Document // document
}

// Size is the number of records the effect writes.
func (e Effect) Size() int {
	switch e.Kind {
	case EffectCreate:
		return len(e.Nodes)
	case EffectUpdate:
		return len(e.Patches)
	case EffectDelete:
		return len(e.IDs)
	default:
		return 1
	}
}

// String renders a short description for logs.
func (e Effect) String() string {
	return fmt.Sprintf("%s(%d) doc=%s", e.Kind, e.Size(), e.DocumentID)
}

// Apply performs the effect against svc.
func (e Effect) Apply(ctx context.Context, svc Service) error {
	switch e.Kind {
	case EffectCreate:
		return svc.CreateNodes(ctx, e.DocumentID, e.Nodes)
	case EffectUpdate:
		return svc.UpdateNodes(ctx, e.DocumentID, e.Patches)
	case EffectDelete:
		return svc.DeleteNodes(ctx, e.DocumentID, e.IDs)
	case EffectDocument:
		if e.Document == nil {
			return fmt.Errorf("document effect without document")
		}
		return svc.UpdateDocument(ctx, *e.Document)
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

// EffectsFor derives the storage calls for a changeset, in the order they
// must run: creates (so new parents exist), updates, deletes, and finally
// the document touch carrying doc's new timestamp. Within a batch, records
// follow change order. An empty changeset yields only the document touch.
func EffectsFor(doc ir.Document, cs graph.Changeset) []Effect {
	var (
		creates []ir.Node
		patches []NodePatch
		deletes []ir.NodeID
	)
	for _, c := range cs.Changes {
		switch {
		case c.Before == nil && c.After != nil:
			creates = append(creates, c.After.Clone())
		case c.Before != nil && c.After == nil:
			deletes = append(deletes, c.ID)
		case c.Before != nil && c.After != nil:
			patches = append(patches, DiffNode(*c.Before, *c.After))
		}
	}

	var out []Effect
	if len(creates) > 0 {
		out = append(out, Effect{Kind: EffectCreate, DocumentID: doc.ID, Nodes: creates})
	}
	if len(patches) > 0 {
		out = append(out, Effect{Kind: EffectUpdate, DocumentID: doc.ID, Patches: patches})
	}
	if len(deletes) > 0 {
		out = append(out, Effect{Kind: EffectDelete, DocumentID: doc.ID, IDs: deletes})
	}
	return append(out, DocumentEffect(doc))
}

// DocumentEffect wraps a metadata write.
func DocumentEffect(doc ir.Document) Effect {
	d := doc.Clone()
	return Effect{Kind: EffectDocument, DocumentID: doc.ID, Document: &d}
}
