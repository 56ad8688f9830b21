// Package store implements the storage collaborator contract over
// PostgreSQL. The engine only sees the narrow execute/query/transaction/
// introspection surface; everything pgx-specific stays here.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bakeledger/dataport/internal/core"
)

// Postgres adapts a pgx connection pool to the core.Store contract.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. The caller owns the pool lifecycle.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Query(ctx context.Context, sql string, args ...any) ([]core.Row, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// Begin starts a transaction satisfying core.Tx.
func (p *Postgres) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// IntrospectColumns fetches the live column set of a table. Called once
// per import batch so writes can be built defensively against schema
// drift; results are never cached across batches.
func (p *Postgres) IntrospectColumns(ctx context.Context, table string) (core.SchemaShape, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shape := make(core.SchemaShape)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		shape[col] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", table)
	}
	return shape, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) Query(ctx context.Context, sql string, args ...any) ([]core.Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// collectRows materializes a result set into column-keyed rows with driver
// types normalized to plain Go values.
func collectRows(rows pgx.Rows) ([]core.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(core.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeValue converts pgx wrapper types into the plain values the
// engine expects (numerics become decimal text, matching the money
// convention).
func normalizeValue(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if val, err := t.Value(); err == nil {
			return val
		}
		return nil
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}
