package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// PGRepository reads report rows from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	gym  *gym.PGRepository
}

// NewRepository constructs the report repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, gym: gym.NewRepository(pool)}
}

func (r *PGRepository) MembershipRecords(ctx context.Context, companyID int64, branchIDs []int64, filter MembershipFilter) ([]MembershipRecord, error) {
	query := `SELECT m.code, b.name, s.name, m.gender,
	COALESCE((SELECT st.name FROM membership_states st WHERE st.status = m.status ORDER BY st.sequence LIMIT 1), m.status),
	COALESCE(p.name, ''), m.recurrence_unit, m.amount, m.discount_percent, m.refund_due, m.next_invoice_date
FROM memberships m
JOIN branches b ON b.id = m.branch_id
JOIN shifts s ON s.id = m.shift_id
LEFT JOIN service_products p ON p.id = m.service_product_id
WHERE m.status <> 'draft' AND m.company_id = $1`
	args := []any{companyID}
	argNum := 2

	if branchIDs != nil {
		query += fmt.Sprintf(" AND m.branch_id = ANY($%d)", argNum)
		args = append(args, branchIDs)
		argNum++
	}
	if filter.BranchID != 0 {
		query += fmt.Sprintf(" AND m.branch_id = $%d", argNum)
		args = append(args, filter.BranchID)
		argNum++
	}
	if filter.ShiftID != 0 {
		query += fmt.Sprintf(" AND m.shift_id = $%d", argNum)
		args = append(args, filter.ShiftID)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND m.status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}
	if filter.Unit != "" {
		query += fmt.Sprintf(" AND m.recurrence_unit = $%d", argNum)
		args = append(args, filter.Unit)
	}
	query += ` ORDER BY m.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MembershipRecord
	for rows.Next() {
		var rec MembershipRecord
		var expiry pgtype.Date
		if err := rows.Scan(&rec.Code, &rec.Branch, &rec.Shift, &rec.Gender, &rec.State, &rec.Service,
			&rec.Unit, &rec.Amount, &rec.DiscountPercent, &rec.RefundDue, &expiry); err != nil {
			return nil, err
		}
		if expiry.Valid {
			t := expiry.Time
			rec.Expiry = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepository) MemberHeader(ctx context.Context, memberID int64) (*MemberHeader, error) {
	h := MemberHeader{MemberID: memberID}
	err := r.pool.QueryRow(ctx, `SELECT mb.name, mb.branch_id, b.name
FROM members mb JOIN branches b ON b.id = mb.branch_id WHERE mb.id = $1`, memberID).
		Scan(&h.MemberName, &h.BranchID, &h.BranchName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %d", shared.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *PGRepository) Measurements(ctx context.Context, memberID int64, from, to *time.Time) ([]gym.Measurement, error) {
	return r.gym.ListMeasurements(ctx, memberID, from, to)
}

func (r *PGRepository) SalesLines(ctx context.Context, filter SalesFilter) ([]SalesLine, error) {
	query := `SELECT o.order_date, o.name, COALESCE(o.customer_id, 0), COALESCE(c.name, ''),
	COALESCE(l.product_id, 0), COALESCE(p.name, ''),
	l.quantity, l.qty_delivered, l.price_unit, l.price_subtotal, l.qty_to_invoice, l.qty_invoiced
FROM sales_order_lines l
JOIN sales_orders o ON o.id = l.order_id
LEFT JOIN customers c ON c.id = o.customer_id
LEFT JOIN products p ON p.id = l.product_id
LEFT JOIN product_categories pc ON pc.id = p.category_id
WHERE o.state IN ('sale', 'done') AND o.order_date >= $1 AND o.order_date <= $2`
	args := []any{filter.From, filter.To}
	argNum := 3

	conds := []struct {
		column string
		value  int64
	}{
		{"o.company_id", filter.CompanyID},
		{"o.user_id", filter.UserID},
		{"o.team_id", filter.TeamID},
		{"o.customer_id", filter.CustomerID},
		{"l.product_id", filter.ProductID},
		{"p.category_id", filter.CategoryID},
		{"pc.parent_id", filter.ParentCategoryID},
	}
	for _, c := range conds {
		if c.value == 0 {
			continue
		}
		query += fmt.Sprintf(" AND %s = $%d", c.column, argNum)
		args = append(args, c.value)
		argNum++
	}
	query += ` ORDER BY o.order_date, o.id, l.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesLine
	for rows.Next() {
		var l SalesLine
		if err := rows.Scan(&l.OrderDate, &l.OrderName, &l.CustomerID, &l.Customer, &l.ProductID, &l.Product,
			&l.OrderedQty, &l.DeliveredQty, &l.Rate, &l.Amount, &l.ToInvoiceQty, &l.InvoicedQty); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
