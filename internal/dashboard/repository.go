package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/gymsuite/internal/billing"
)

// PGRepository runs dashboard aggregates on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scoped(query string, args []any, branchIDs []int64) (string, []any) {
	if branchIDs == nil {
		return query, args
	}
	args = append(args, branchIDs)
	return query + fmt.Sprintf(" AND m.branch_id = ANY($%d)", len(args)), args
}

// StatusCounts counts memberships per status.
func (r *PGRepository) StatusCounts(ctx context.Context, companyID int64, branchIDs []int64) (map[billing.Status]int, error) {
	query, args := scoped(`SELECT m.status, COUNT(*) FROM memberships m WHERE m.company_id = $1`, []any{companyID}, branchIDs)
	rows, err := r.pool.Query(ctx, query+` GROUP BY m.status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[billing.Status]int)
	for rows.Next() {
		var status billing.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// CountExpiring counts active memberships whose cursor falls within [from, to].
func (r *PGRepository) CountExpiring(ctx context.Context, companyID int64, branchIDs []int64, from, to time.Time) (int, error) {
	query, args := scoped(`SELECT COUNT(*) FROM memberships m
WHERE m.company_id = $1 AND m.status = 'active' AND m.next_invoice_date BETWEEN $2 AND $3`, []any{companyID, from, to}, branchIDs)
	var n int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

var groupExpr = map[Dimension]struct{ key, label, join string }{
	ByBranch: {key: "m.branch_id::text", label: "b.name", join: " JOIN branches b ON b.id = m.branch_id"},
	ByGender: {key: "m.gender", label: "m.gender"},
	ByUnit:   {key: "m.recurrence_unit", label: "m.recurrence_unit"},
	ByMonth:  {key: "to_char(m.created_at, 'YYYY-MM')", label: "to_char(m.created_at, 'Mon YYYY')"},
}

// GroupCounts counts memberships along one dimension. Month groups are limited
// to memberships created within [from, to].
func (r *PGRepository) GroupCounts(ctx context.Context, dim Dimension, companyID int64, branchIDs []int64, from, to time.Time) ([]Bucket, error) {
	expr, ok := groupExpr[dim]
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown dimension %q", dim)
	}
	query := fmt.Sprintf(`SELECT %s, %s, COUNT(*) FROM memberships m%s WHERE m.company_id = $1`, expr.key, expr.label, expr.join)
	args := []any{companyID}
	if dim == ByMonth {
		query += ` AND m.created_at >= $2 AND m.created_at < $3::date + 1`
		args = append(args, from, to)
	}
	query, args = scoped(query, args, branchIDs)
	query += ` GROUP BY 1, 2 ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Label, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
