package gym

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/gymsuite/internal/platform/db"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the master data repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, what, id)
	}
	return err
}

const branchColumns = `id, company_id, name, manager_id, gender, address, reminder_days, active, created_at, updated_at`

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.CompanyID, &b.Name, &b.ManagerID, &b.Gender, &b.Address, &b.ReminderDays, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) CreateBranch(ctx context.Context, b *Branch) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO branches (company_id, name, manager_id, gender, address, reminder_days, active)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		b.CompanyID, b.Name, b.ManagerID, b.Gender, b.Address, b.ReminderDays, b.Active,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return db.TranslateError(err)
}

func (r *PGRepository) SaveBranch(ctx context.Context, b *Branch) error {
	err := r.pool.QueryRow(ctx, `UPDATE branches SET name = $2, manager_id = $3, address = $4, reminder_days = $5, active = $6, updated_at = NOW()
WHERE id = $1 RETURNING updated_at`, b.ID, b.Name, b.ManagerID, b.Address, b.ReminderDays, b.Active).Scan(&b.UpdatedAt)
	return notFound(db.TranslateError(err), "branch", b.ID)
}

func (r *PGRepository) GetBranch(ctx context.Context, id int64) (*Branch, error) {
	b, err := scanBranch(r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "branch", id)
	}
	return b, nil
}

func (r *PGRepository) ListBranches(ctx context.Context, companyID int64, branchIDs []int64) ([]Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE company_id = $1`
	args := []interface{}{companyID}
	if branchIDs != nil {
		query += ` AND id = ANY($2)`
		args = append(args, branchIDs)
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PGRepository) DeleteBranch(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: branch %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *PGRepository) CountBranchMemberships(ctx context.Context, branchID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memberships WHERE branch_id = $1`, branchID).Scan(&n)
	return n, err
}

const shiftColumns = `id, branch_id, name, start_hour, end_hour, capacity, service_product_id, coach_ids, active, created_at, updated_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.BranchID, &s.Name, &s.StartHour, &s.EndHour, &s.Capacity, &s.ServiceProductID, &s.CoachIDs, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) CreateShift(ctx context.Context, s *Shift) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO shifts (branch_id, name, start_hour, end_hour, capacity, service_product_id, coach_ids, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		s.BranchID, s.Name, s.StartHour, s.EndHour, s.Capacity, s.ServiceProductID, s.CoachIDs, s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return db.TranslateError(err)
}

func (r *PGRepository) SaveShift(ctx context.Context, s *Shift) error {
	err := r.pool.QueryRow(ctx, `UPDATE shifts SET name = $2, start_hour = $3, end_hour = $4, capacity = $5, service_product_id = $6,
	active = $7, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		s.ID, s.Name, s.StartHour, s.EndHour, s.Capacity, s.ServiceProductID, s.Active).Scan(&s.UpdatedAt)
	return notFound(db.TranslateError(err), "shift", s.ID)
}

func (r *PGRepository) GetShift(ctx context.Context, id int64) (*Shift, error) {
	s, err := scanShift(r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "shift", id)
	}
	return s, nil
}

func (r *PGRepository) ListShifts(ctx context.Context, branchIDs []int64, branchID int64) ([]Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE 1=1`
	var args []interface{}
	argNum := 1
	if branchIDs != nil {
		query += fmt.Sprintf(" AND branch_id = ANY($%d)", argNum)
		args = append(args, branchIDs)
		argNum++
	}
	if branchID != 0 {
		query += fmt.Sprintf(" AND branch_id = $%d", argNum)
		args = append(args, branchID)
	}
	query += ` ORDER BY branch_id, start_hour`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

const memberColumns = `id, company_id, branch_id, name, phone, email, gender, COALESCE(sms_warning, ''), active, created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.CompanyID, &m.BranchID, &m.Name, &m.Phone, &m.Email, &m.Gender, &m.SMSWarning, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) CreateMember(ctx context.Context, m *Member) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO members (company_id, branch_id, name, phone, email, gender, active)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		m.CompanyID, m.BranchID, m.Name, m.Phone, m.Email, m.Gender, m.Active,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return db.TranslateError(err)
}

func (r *PGRepository) SaveMember(ctx context.Context, m *Member) error {
	err := r.pool.QueryRow(ctx, `UPDATE members SET name = $2, phone = $3, email = $4, active = $5, updated_at = NOW()
WHERE id = $1 RETURNING updated_at`, m.ID, m.Name, m.Phone, m.Email, m.Active).Scan(&m.UpdatedAt)
	return notFound(db.TranslateError(err), "member", m.ID)
}

func (r *PGRepository) GetMember(ctx context.Context, id int64) (*Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "member", id)
	}
	return m, nil
}

func (r *PGRepository) ListMembers(ctx context.Context, companyID int64, branchIDs []int64, req ListMembersRequest) ([]Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE company_id = $1`
	args := []interface{}{companyID}
	argNum := 2
	if branchIDs != nil {
		query += fmt.Sprintf(" AND branch_id = ANY($%d)", argNum)
		args = append(args, branchIDs)
		argNum++
	}
	if req.BranchID != 0 {
		query += fmt.Sprintf(" AND branch_id = $%d", argNum)
		args = append(args, req.BranchID)
		argNum++
	}
	if req.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+req.Search+"%")
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListStates(ctx context.Context) ([]MembershipState, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, status, sequence FROM membership_states ORDER BY sequence, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MembershipState
	for rows.Next() {
		var st MembershipState
		if err := rows.Scan(&st.ID, &st.Name, &st.Status, &st.Sequence); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetProduct(ctx context.Context, id int64) (*ServiceProduct, error) {
	var p ServiceProduct
	err := r.pool.QueryRow(ctx, `SELECT id, name, list_price FROM service_products WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.ListPrice)
	if err != nil {
		return nil, notFound(err, "service product", id)
	}
	variants, err := r.variants(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	p.Variants = variants[id]
	return &p, nil
}

func (r *PGRepository) ListProducts(ctx context.Context) ([]ServiceProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, list_price FROM service_products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var out []ServiceProduct
	var ids []int64
	for rows.Next() {
		var p ServiceProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.ListPrice); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	variants, err := r.variants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Variants = variants[out[i].ID]
	}
	return out, nil
}

func (r *PGRepository) variants(ctx context.Context, productIDs []int64) (map[int64][]ProductVariant, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, unit, price FROM service_product_variants
WHERE product_id = ANY($1) ORDER BY product_id, id`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]ProductVariant)
	for rows.Next() {
		var v ProductVariant
		var productID int64
		if err := rows.Scan(&v.ID, &productID, &v.Unit, &v.Price); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], v)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateMeasurement(ctx context.Context, m *Measurement) error {
	var note pgtype.Text
	if m.Note != "" {
		note = pgtype.Text{String: m.Note, Valid: true}
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO measurements (member_id, measured_on, weight_kg, height_cm, body_fat_pct, muscle_mass, note)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		m.MemberID, m.Date, m.WeightKg, m.HeightCm, m.BodyFatPercentage, m.MuscleMass, note,
	).Scan(&m.ID)
	return db.TranslateError(err)
}

func (r *PGRepository) ListMeasurements(ctx context.Context, memberID int64, from, to *time.Time) ([]Measurement, error) {
	query := `SELECT id, member_id, measured_on, weight_kg, height_cm, body_fat_pct, muscle_mass, COALESCE(note, '')
FROM measurements WHERE member_id = $1`
	args := []interface{}{memberID}
	argNum := 2
	if from != nil {
		query += fmt.Sprintf(" AND measured_on >= $%d", argNum)
		args = append(args, *from)
		argNum++
	}
	if to != nil {
		query += fmt.Sprintf(" AND measured_on <= $%d", argNum)
		args = append(args, *to)
	}
	query += ` ORDER BY measured_on DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.ID, &m.MemberID, &m.Date, &m.WeightKg, &m.HeightCm, &m.BodyFatPercentage, &m.MuscleMass, &m.Note); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
