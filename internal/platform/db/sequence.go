package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextSequence atomically increments the named counter and returns the new value.
func NextSequence(ctx context.Context, q Querier, key string) (int64, error) {
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (key, last_value) VALUES ($1, 1)
ON CONFLICT (key) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("platform/db: next sequence %s: %w", key, err)
	}
	return value, nil
}

// FormatSequence renders a document code such as MEM/00042.
func FormatSequence(prefix string, value int64) string {
	return fmt.Sprintf("%s/%05d", prefix, value)
}
