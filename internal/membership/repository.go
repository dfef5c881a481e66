package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/platform/db"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

const codeSequence = "membership"

// Repository provides PostgreSQL backed persistence for memberships.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const membershipColumns = `m.id, m.code, m.company_id, m.member_id, m.branch_id, m.shift_id, m.gender, m.service_product_id, m.variant_id,
	m.amount, m.discount_percent, m.recurrence_unit, m.recurrence_interval, m.start_date, m.next_invoice_date, m.auto_invoice,
	m.status, COALESCE((SELECT s.name FROM membership_states s WHERE s.status = m.status ORDER BY s.sequence LIMIT 1), ''),
	m.refunded, m.refund_due, m.created_by, m.created_at, m.updated_at`

func scanMembership(row pgx.Row, extra ...any) (*Membership, error) {
	var m Membership
	var productID, variantID pgtype.Int8
	var next pgtype.Date
	dest := []any{
		&m.ID, &m.Code, &m.CompanyID, &m.MemberID, &m.BranchID, &m.ShiftID, &m.Gender, &productID, &variantID,
		&m.Amount, &m.DiscountPercent, &m.Unit, &m.Interval, &m.StartDate, &next, &m.AutoInvoice,
		&m.Status, &m.StateName, &m.Refunded, &m.RefundDue, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if productID.Valid {
		m.ServiceProductID = productID.Int64
	}
	if variantID.Valid {
		m.VariantID = &variantID.Int64
	}
	if next.Valid {
		d := billing.Day(next.Time)
		m.NextInvoiceDate = &d
	}
	m.StartDate = billing.Day(m.StartDate)
	return &m, nil
}

func collect(rows pgx.Rows) ([]Membership, error) {
	defer rows.Close()
	var out []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Get loads one membership.
func (r *Repository) Get(ctx context.Context, id int64) (*Membership, error) {
	m, err := scanMembership(r.pool.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships m WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
	}
	return m, err
}

// List returns memberships matching the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships m WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.BranchIDs != nil {
		query += fmt.Sprintf(" AND m.branch_id = ANY($%d)", argNum)
		args = append(args, filter.BranchIDs)
		argNum++
	}
	if filter.BranchID > 0 {
		query += fmt.Sprintf(" AND m.branch_id = $%d", argNum)
		args = append(args, filter.BranchID)
		argNum++
	}
	if filter.ShiftID > 0 {
		query += fmt.Sprintf(" AND m.shift_id = $%d", argNum)
		args = append(args, filter.ShiftID)
		argNum++
	}
	if filter.MemberID > 0 {
		query += fmt.Sprintf(" AND m.member_id = $%d", argNum)
		args = append(args, filter.MemberID)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND m.status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}
	if filter.Unit != "" {
		query += fmt.Sprintf(" AND m.recurrence_unit = $%d", argNum)
		args = append(args, string(filter.Unit))
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY m.id DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// DueForInvoice lists active auto-invoiced memberships with a due cursor.
func (r *Repository) DueForInvoice(ctx context.Context, today time.Time) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+membershipColumns+` FROM memberships m
WHERE m.status = 'active' AND m.auto_invoice AND m.next_invoice_date <= $1
ORDER BY m.next_invoice_date, m.id`, today)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// DueForExpiration lists active manually invoiced memberships with a passed cursor.
func (r *Repository) DueForExpiration(ctx context.Context, today time.Time) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+membershipColumns+` FROM memberships m
WHERE m.status = 'active' AND NOT m.auto_invoice AND m.next_invoice_date <= $1
ORDER BY m.next_invoice_date, m.id`, today)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ReminderCandidates lists active memberships whose cursor is within the
// reminder window of their branch and that were not yet reminded for it.
func (r *Repository) ReminderCandidates(ctx context.Context, today time.Time) ([]ReminderCandidate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+membershipColumns+`, p.name, p.phone, p.email, b.name, b.manager_id
FROM memberships m
JOIN members p ON p.id = m.member_id
JOIN branches b ON b.id = m.branch_id
WHERE m.status = 'active'
  AND m.next_invoice_date >= $1
  AND m.next_invoice_date <= $1::date + b.reminder_days
  AND m.reminded_for IS DISTINCT FROM m.next_invoice_date
ORDER BY m.next_invoice_date, m.id`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		m, err := scanMembership(rows, &c.MemberName, &c.MemberPhone, &c.MemberEmail, &c.BranchName, &c.BranchManager)
		if err != nil {
			return nil, err
		}
		c.Membership = *m
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkReminded records that the member was reminded about the cursor due.
func (r *Repository) MarkReminded(ctx context.Context, id int64, due time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE memberships SET reminded_for = $2 WHERE id = $1`, id, due)
	return db.TranslateError(err)
}

// CreateActivity stores a follow-up reminder.
func (r *Repository) CreateActivity(ctx context.Context, a *Activity) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO activities (membership_id, user_id, summary, note, due_date)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		a.MembershipID, a.UserID, a.Summary, a.Note, a.DueDate).Scan(&a.ID, &a.CreatedAt)
	return db.TranslateError(err)
}

// WithTx runs fn in a read-committed transaction so a count taken after the
// shift lock sees memberships committed by the previous lock holder.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) LockShift(ctx context.Context, shiftID int64) error {
	return db.AdvisoryXactLock(ctx, t.tx, db.LockNamespaceShift, shiftID)
}

func (t *txRepo) CountOccupying(ctx context.Context, shiftID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM memberships
WHERE shift_id = $1 AND status NOT IN ('expired', 'cancelled')`, shiftID).Scan(&n)
	return n, err
}

func (t *txRepo) NextCode(ctx context.Context) (string, error) {
	v, err := db.NextSequence(ctx, t.tx, codeSequence)
	if err != nil {
		return "", err
	}
	return db.FormatSequence("MEM", v), nil
}

func nullableID(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}

func nullableDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func (t *txRepo) Insert(ctx context.Context, m *Membership) error {
	var variant pgtype.Int8
	if m.VariantID != nil {
		variant = nullableID(*m.VariantID)
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO memberships (code, company_id, member_id, branch_id, shift_id, gender, service_product_id, variant_id,
	amount, discount_percent, recurrence_unit, recurrence_interval, start_date, next_invoice_date, auto_invoice, status, refunded, refund_due, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
RETURNING id, created_at, updated_at`,
		m.Code, m.CompanyID, m.MemberID, m.BranchID, m.ShiftID, m.Gender, nullableID(m.ServiceProductID), variant,
		m.Amount, m.DiscountPercent, string(m.Unit), m.Interval, m.StartDate, nullableDate(m.NextInvoiceDate), m.AutoInvoice,
		string(m.Status), m.Refunded, m.RefundDue, m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return db.TranslateError(err)
}

func (t *txRepo) Lock(ctx context.Context, id int64) (*Membership, error) {
	m, err := scanMembership(t.tx.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships m WHERE m.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
	}
	return m, err
}

func (t *txRepo) Save(ctx context.Context, m *Membership) error {
	var variant pgtype.Int8
	if m.VariantID != nil {
		variant = nullableID(*m.VariantID)
	}
	err := t.tx.QueryRow(ctx, `UPDATE memberships SET service_product_id = $2, variant_id = $3, amount = $4, discount_percent = $5,
	next_invoice_date = $6, status = $7, refunded = $8, refund_due = $9, updated_at = NOW()
WHERE id = $1
RETURNING updated_at, COALESCE((SELECT s.name FROM membership_states s WHERE s.status = memberships.status ORDER BY s.sequence LIMIT 1), '')`,
		m.ID, nullableID(m.ServiceProductID), variant, m.Amount, m.DiscountPercent,
		nullableDate(m.NextInvoiceDate), string(m.Status), m.Refunded, m.RefundDue,
	).Scan(&m.UpdatedAt, &m.StateName)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: membership %d", shared.ErrNotFound, m.ID)
	}
	return db.TranslateError(err)
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
	}
	return nil
}
