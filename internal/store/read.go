package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/persist"
	"github.com/roach88/outliner/internal/queryir"
	"github.com/roach88/outliner/internal/querysql"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const documentColumns = `id, owner_id, title, expanded, created_at, updated_at`

const nodeColumns = `id, document_id, name, template_id, data, parent_ids, sort_orders, position, is_starred, created_at, updated_at`

// LoadDocument returns a document and its nodes ordered by position, id.
func (s *Store) LoadDocument(ctx context.Context, id string) (ir.Document, []ir.Node, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Document{}, nil, persist.NotFound(id)
	}
	if err != nil {
		return ir.Document{}, nil, fmt.Errorf("load document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE document_id = ?
		ORDER BY position ASC, id ASC
	`), id)
	if err != nil {
		return ir.Document{}, nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []ir.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return ir.Document{}, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return ir.Document{}, nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return doc, nodes, nil
}

// FindNodes runs a node search. The query is compiled to parameterized SQL.
func (s *Store) FindNodes(ctx context.Context, q queryir.Select) ([]ir.Node, error) {
	query, args, err := querysql.Compile(q, nodeColumns)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	defer rows.Close()

	nodes := []ir.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// ListDocuments returns an owner's documents, most recently updated first.
// An empty owner lists every document.
func (s *Store) ListDocuments(ctx context.Context, owner string) ([]ir.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if owner != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, owner)
	}
	q += ` ORDER BY updated_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []ir.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// DocumentUpdatedAt returns the stored modification time, used by the
// sync poller.
func (s *Store) DocumentUpdatedAt(ctx context.Context, id string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT updated_at FROM documents WHERE id = ?`), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, persist.NotFound(id)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("document updated_at: %w", err)
	}
	return parseTime(raw)
}

// CountNodes returns how many nodes a document has.
func (s *Store) CountNodes(ctx context.Context, docID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM nodes WHERE document_id = ?`), docID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

func scanDocument(sc scanner) (ir.Document, error) {
	var (
		d                ir.Document
		expanded         string
		created, updated string
	)
	if err := sc.Scan(&d.ID, &d.OwnerID, &d.Title, &expanded, &created, &updated); err != nil {
		return ir.Document{}, err
	}
	var err error
	if d.Expanded, err = unmarshalExpanded(expanded); err != nil {
		return ir.Document{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return ir.Document{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return ir.Document{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return d, nil
}

func scanNode(sc scanner) (ir.Node, error) {
	var (
		n                ir.Node
		id               string
		data             string
		parents, order   string
		starred          int
		created, updated string
	)
	if err := sc.Scan(&id, &n.DocumentID, &n.Name, &n.TemplateID, &data, &parents, &order, &n.Position, &starred, &created, &updated); err != nil {
		return ir.Node{}, fmt.Errorf("scan node: %w", err)
	}
	n.ID = ir.NodeID(id)
	n.IsStarred = starred != 0

	var err error
	if n.Data, err = unmarshalData(data); err != nil {
		return ir.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	if n.ParentIDs, n.Order, err = unmarshalEdges(parents, order); err != nil {
		return ir.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	if n.CreatedAt, err = parseTime(created); err != nil {
		return ir.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	if n.UpdatedAt, err = parseTime(updated); err != nil {
		return ir.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	return n, nil
}
