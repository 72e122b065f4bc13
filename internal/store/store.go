package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/outliner/internal/persist"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - documents and nodes
// 2 - nodes.position
const currentSchemaVersion = 2

// Dialect selects placeholder syntax and connection setup.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents and nodes in SQLite or Postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ persist.Service = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	return OpenDialect(context.Background(), SQLite, path)
}

// OpenPostgres connects to Postgres using a pgx DSN.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	return OpenDialect(ctx, Postgres, dsn)
}

// OpenDialect opens dsn with the driver for dialect and applies the schema.
func OpenDialect(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(dialect.driverName(), dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	if dialect == SQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports which database the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// SchemaVersion returns the recorded schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT version FROM schema_meta WHERE id = 1`)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	if err := s.runMigrations(ctx); err != nil {
		return err
	}
	// Created after migrations: v1 databases gain the column in migrateToV2.
	_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_nodes_position ON nodes(document_id, position)`)
	return err
}

// runMigrations brings databases created by older versions up to date.
func (s *Store) runMigrations(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		// Fresh database: schema.sql already has every column.
		_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO schema_meta (id, version) VALUES (1, ?)`), currentSchemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version < 2 {
		if err := s.migrateToV2(ctx); err != nil {
			return err
		}
	}
	if version != currentSchemaVersion {
		_, err = s.db.ExecContext(ctx, s.rebind(`UPDATE schema_meta SET version = ? WHERE id = 1`), currentSchemaVersion)
		if err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// migrateToV2 adds nodes.position to v1 databases, numbering existing rows
// by creation time.
func (s *Store) migrateToV2(ctx context.Context) error {
	has, err := s.hasColumn(ctx, "nodes", "position")
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	if !has {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE nodes ADD COLUMN position BIGINT NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT document_id, id FROM nodes ORDER BY document_id, created_at, id`)
		if err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
		type key struct{ doc, id string }
		var keys []key
		for rows.Next() {
			var k key
			if err := rows.Scan(&k.doc, &k.id); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, k)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		pos, doc := int64(0), ""
		for _, k := range keys {
			if k.doc != doc {
				doc, pos = k.doc, 0
			}
			if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE nodes SET position = ? WHERE document_id = ? AND id = ?`), pos, k.doc, k.id); err != nil {
				return fmt.Errorf("migrate to v2: %w", err)
			}
			pos++
		}
		return nil
	})
}

func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	var q string
	if s.dialect == Postgres {
		q = `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`
	} else {
		q = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(q), table, column).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for Postgres.
// Queries never contain a literal question mark.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// splitStatements splits a schema script on semicolons.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
