// Package store is the SQL implementation of persist.Service.
//
// Documents and nodes live in two tables. Node payloads are stored as
// RFC 8785 canonical JSON, parent edges and order keys as JSON arrays, and
// timestamps as fixed-width UTC text so they sort lexically.
//
// # Drivers
//
//   - sqlite3 (mattn/go-sqlite3): the default, one file per workspace
//   - pgx (jackc/pgx/v5/stdlib): shared Postgres
//
// Both run the same schema.sql. Queries are written with "?" placeholders
// and rebound to "$n" for Postgres.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every batch runs in one transaction. Writes are upserts, so a retried
// batch is harmless.
package store
