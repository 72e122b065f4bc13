package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/persist"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateDocument inserts or overwrites document metadata.
func (s *Store) CreateDocument(ctx context.Context, doc ir.Document) error {
	if err := s.upsertDocument(ctx, s.db, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// UpdateDocument overwrites metadata of an existing document.
func (s *Store) UpdateDocument(ctx context.Context, doc ir.Document) error {
	expanded, err := marshalExpanded(doc.Expanded)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE documents
		SET owner_id = ?, title = ?, expanded = ?, updated_at = ?
		WHERE id = ?
	`), doc.OwnerID, doc.Title, expanded, formatTime(doc.UpdatedAt), doc.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persist.NotFound(doc.ID)
	}
	return nil
}

func (s *Store) upsertDocument(ctx context.Context, ex execer, doc ir.Document) error {
	expanded, err := marshalExpanded(doc.Expanded)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (id, owner_id, title, expanded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			expanded = excluded.expanded,
			updated_at = excluded.updated_at
	`), doc.ID, doc.OwnerID, doc.Title, expanded, formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	return err
}

// CreateNodes upserts nodes in one transaction.
func (s *Store) CreateNodes(ctx context.Context, docID string, nodes []ir.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireDocument(ctx, tx, docID); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := s.upsertNode(ctx, tx, docID, n); err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create nodes: %w", err)
	}
	return nil
}

func (s *Store) upsertNode(ctx context.Context, ex execer, docID string, n ir.Node) error {
	data, err := marshalData(n.Data)
	if err != nil {
		return err
	}
	parents, order, err := marshalEdges(n.ParentIDs, n.Order)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, s.rebind(`
		INSERT INTO nodes
		(document_id, id, name, template_id, data, parent_ids, sort_orders, position, is_starred, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, id) DO UPDATE SET
			name = excluded.name,
			template_id = excluded.template_id,
			data = excluded.data,
			parent_ids = excluded.parent_ids,
			sort_orders = excluded.sort_orders,
			position = excluded.position,
			is_starred = excluded.is_starred,
			updated_at = excluded.updated_at
	`),
		docID,
		string(n.ID),
		n.Name,
		n.TemplateID,
		data,
		parents,
		order,
		n.Position,
		boolInt(n.IsStarred),
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	return err
}

// UpdateNodes writes only the columns each patch names. Patches for nodes
// that no longer exist are ignored.
func (s *Store) UpdateNodes(ctx context.Context, docID string, patches []persist.NodePatch) error {
	if len(patches) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireDocument(ctx, tx, docID); err != nil {
			return err
		}
		for _, p := range patches {
			q, args, err := s.patchQuery(docID, p)
			if err != nil {
				return fmt.Errorf("node %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("node %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update nodes: %w", err)
	}
	return nil
}

func (s *Store) patchQuery(docID string, p persist.NodePatch) (string, []any, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Fields.Has(persist.FieldName) {
		set("name", p.Name)
	}
	if p.Fields.Has(persist.FieldTemplate) {
		set("template_id", p.TemplateID)
	}
	if p.Fields.Has(persist.FieldData) {
		data, err := marshalData(p.Data)
		if err != nil {
			return "", nil, err
		}
		set("data", data)
	}
	if p.Fields.Has(persist.FieldParents) {
		parents, order, err := marshalEdges(p.ParentIDs, p.Order)
		if err != nil {
			return "", nil, err
		}
		set("parent_ids", parents)
		set("sort_orders", order)
	}
	if p.Fields.Has(persist.FieldStarred) {
		set("is_starred", boolInt(p.IsStarred))
	}
	if p.Fields.Has(persist.FieldPosition) {
		set("position", p.Position)
	}
	set("updated_at", formatTime(p.UpdatedAt))

	args = append(args, docID, string(p.ID))
	q := "UPDATE nodes SET " + strings.Join(sets, ", ") + " WHERE document_id = ? AND id = ?"
	return s.rebind(q), args, nil
}

// DeleteNodes removes nodes; missing ids are ignored.
func (s *Store) DeleteNodes(ctx context.Context, docID string, ids []ir.NodeID) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE document_id = ? AND id = ?`), docID, string(id)); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	return nil
}

// ReplaceDocument overwrites the document and all of its nodes.
func (s *Store) ReplaceDocument(ctx context.Context, doc ir.Document, nodes []ir.Node) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.upsertDocument(ctx, tx, doc); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE document_id = ?`), doc.ID); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := s.upsertNode(ctx, tx, doc.ID, n); err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// DeleteDocument removes a document and, by cascade, its nodes.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE document_id = ?`), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM documents WHERE id = ?`), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return persist.NotFound(id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *Store) requireDocument(ctx context.Context, tx *sql.Tx, docID string) error {
	var n int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM documents WHERE id = ?`), docID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return persist.NotFound(docID)
	}
	return nil
}
