package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/platform/db"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, number, doc_type, company_id, branch_id, member_id, membership_id, doc_date, currency,
	subtotal, discount, total, paid, status, posted_at, created_by, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var membershipID pgtype.Int8
	var postedAt pgtype.Timestamptz
	err := row.Scan(
		&doc.ID, &doc.Number, &doc.Type, &doc.CompanyID, &doc.BranchID, &doc.MemberID, &membershipID, &doc.Date, &doc.Currency,
		&doc.Subtotal, &doc.Discount, &doc.Total, &doc.Paid, &doc.Status, &postedAt, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if membershipID.Valid {
		doc.MembershipID = &membershipID.Int64
	}
	if postedAt.Valid {
		doc.PostedAt = &postedAt.Time
	}
	return &doc, nil
}

// Get retrieves a document with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

func (r *Repository) listLines(ctx context.Context, documentID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price, discount_pct, subtotal, total
FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.Subtotal, &l.Total); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// List returns documents matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Type != "" {
		query += fmt.Sprintf(" AND doc_type = $%d", argNum)
		args = append(args, string(filter.Type))
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}
	if filter.MemberID > 0 {
		query += fmt.Sprintf(" AND member_id = $%d", argNum)
		args = append(args, filter.MemberID)
		argNum++
	}
	if filter.MembershipID > 0 {
		query += fmt.Sprintf(" AND membership_id = $%d", argNum)
		args = append(args, filter.MembershipID)
		argNum++
	}
	if filter.BranchIDs != nil {
		query += fmt.Sprintf(" AND branch_id = ANY($%d)", argNum)
		args = append(args, filter.BranchIDs)
		argNum++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND doc_date >= $%d", argNum)
		args = append(args, filter.From)
		argNum++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND doc_date <= $%d", argNum)
		args = append(args, filter.To)
		argNum++
	}

	query += " ORDER BY doc_date DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// HasPosted reports whether a posted or paid document of the type exists for the membership.
func (r *Repository) HasPosted(ctx context.Context, membershipID int64, docType DocumentType) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE membership_id = $1 AND doc_type = $2 AND status IN ('posted', 'paid'))`,
		membershipID, string(docType)).Scan(&exists)
	return exists, err
}

// MonthlyPostedTotals groups posted and paid documents by month.
func (r *Repository) MonthlyPostedTotals(ctx context.Context, docType DocumentType, branchIDs []int64, from, to time.Time) ([]MonthlyTotal, error) {
	query := `SELECT date_trunc('month', doc_date)::date AS month, COALESCE(SUM(total), 0), COUNT(*)
FROM invoices
WHERE doc_type = $1 AND status IN ('posted', 'paid') AND doc_date BETWEEN $2 AND $3`
	args := []any{string(docType), from, to}
	if branchIDs != nil {
		query += ` AND branch_id = ANY($4)`
		args = append(args, branchIDs)
	}
	query += ` GROUP BY 1 ORDER BY 1`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyTotal
	for rows.Next() {
		var m MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Total, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) NextNumber(ctx context.Context, docType DocumentType, year int) (string, error) {
	prefix := fmt.Sprintf("%s/%d", docType.Prefix(), year)
	value, err := db.NextSequence(ctx, t.tx, prefix)
	if err != nil {
		return "", err
	}
	return db.FormatSequence(prefix, value), nil
}

func (t *txRepo) InsertDocument(ctx context.Context, doc *Document) error {
	var membershipID pgtype.Int8
	if doc.MembershipID != nil {
		membershipID = pgtype.Int8{Int64: *doc.MembershipID, Valid: true}
	}
	return t.tx.QueryRow(ctx, `INSERT INTO invoices (number, doc_type, company_id, branch_id, member_id, membership_id, doc_date, currency,
	subtotal, discount, total, paid, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		doc.Number, string(doc.Type), doc.CompanyID, doc.BranchID, doc.MemberID, membershipID, doc.Date, doc.Currency,
		doc.Subtotal, doc.Discount, doc.Total, doc.Paid, string(doc.Status), doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
}

func (t *txRepo) InsertLine(ctx context.Context, line *Line) error {
	return t.tx.QueryRow(ctx, `INSERT INTO invoice_lines (invoice_id, product_id, description, quantity, unit_price, discount_pct, subtotal, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		line.DocumentID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.DiscountPct, line.Subtotal, line.Total,
	).Scan(&line.ID)
}

func (t *txRepo) MarkPosted(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = 'posted', posted_at = $2, updated_at = NOW() WHERE id = $1 AND status = 'draft'`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d is not a draft", shared.ErrConflict, id)
	}
	return nil
}

func (t *txRepo) LockDocument(ctx context.Context, id int64) (*Document, error) {
	doc, err := scanDocument(t.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return doc, err
}

func (t *txRepo) InsertPayment(ctx context.Context, payment *Payment) error {
	return t.tx.QueryRow(ctx, `INSERT INTO invoice_payments (invoice_id, journal, amount, paid_at, memo, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`,
		payment.DocumentID, payment.Journal, payment.Amount, payment.PaidAt, payment.Memo, payment.CreatedBy,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (t *txRepo) UpdatePaid(ctx context.Context, id int64, paid decimal.Decimal, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET paid = $2, status = $3, updated_at = NOW() WHERE id = $1`, id, paid, string(status))
	return err
}

var _ RepositoryPort = (*Repository)(nil)
