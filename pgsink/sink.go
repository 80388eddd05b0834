// Package pgsink exports leaf assignments to PostgreSQL.
//
// Rows are bulk-loaded with COPY inside a single transaction, so a table
// either receives the whole tree or nothing.
package pgsink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/lib/pq"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "sitetree_leaves"

// Columns are the columns written by the sink, in COPY order.
var Columns = []string{"leaf_id", "year", "attributes", "coords"}

// ErrNoTable is returned when the table name is empty.
var ErrNoTable = errors.New("pgsink: table name is required")

// Sink writes trees into one table.
type Sink struct {
	db      *sql.DB
	table   string
	replace bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithTable sets the target table.
func WithTable(table string) Option {
	return func(s *Sink) { s.table = table }
}

// WithReplace deletes existing rows before loading.
func WithReplace() Option {
	return func(s *Sink) { s.replace = true }
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) (*Sink, error) {
	s := &Sink{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == "" {
		return nil, ErrNoTable
	}
	return s, nil
}

// Open connects to dsn with the lib/pq driver.
func Open(dsn string, opts ...Option) (*Sink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgsink: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Table returns the target table name.
func (s *Sink) Table() string { return s.table }

// Close closes the database handle.
func (s *Sink) Close() error { return s.db.Close() }

// Ping verifies the connection.
func (s *Sink) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	leaf_id BIGINT NOT NULL,
	year INTEGER NOT NULL,
	attributes TEXT[] NOT NULL,
	coords DOUBLE PRECISION[] NOT NULL
)`, pq.QuoteIdentifier(table))
}

func deleteSQL(table string) string {
	return "DELETE FROM " + pq.QuoteIdentifier(table)
}

// rowArgs converts one leaf point to COPY arguments.
func rowArgs[T geom.Coordinate](lp kdtree.LeafPoint[T]) []any {
	coords := make([]float64, len(lp.Point.Coords))
	for i, c := range lp.Point.Coords {
		coords[i] = float64(c)
	}
	attrs := lp.Point.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	return []any{int64(lp.LeafID), lp.Point.Year, pq.Array(attrs), pq.Array(coords)}
}

// Write loads every leaf point of t into the sink's table, creating the
// table if needed. It returns the number of rows copied.
func Write[T geom.Coordinate](ctx context.Context, s *Sink, t *kdtree.Tree[T]) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("pgsink: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, createTableSQL(s.table)); err != nil {
		return 0, fmt.Errorf("pgsink: create table: %w", err)
	}
	if s.replace {
		if _, err = tx.ExecContext(ctx, deleteSQL(s.table)); err != nil {
			return 0, fmt.Errorf("pgsink: clear table: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.table, Columns...))
	if err != nil {
		return 0, fmt.Errorf("pgsink: prepare copy: %w", err)
	}

	for _, lp := range t.LeafPoints() {
		if _, err = stmt.ExecContext(ctx, rowArgs(lp)...); err != nil {
			_ = stmt.Close()
			return n, fmt.Errorf("pgsink: copy row %d: %w", lp.Row, err)
		}
		n++
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return n, fmt.Errorf("pgsink: flush copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return n, fmt.Errorf("pgsink: close copy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return n, fmt.Errorf("pgsink: commit: %w", err)
	}
	return n, nil
}
