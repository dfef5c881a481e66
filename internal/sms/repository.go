package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Repository stores templates and member SMS warnings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TemplateByUsage returns the most recent template for the usage.
func (r *Repository) TemplateByUsage(ctx context.Context, usage Usage) (*Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx, `SELECT id, name, usage, body, created_at FROM sms_templates WHERE usage = $1 ORDER BY id DESC LIMIT 1`, string(usage)).
		Scan(&t.ID, &t.Name, &t.Usage, &t.Body, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sms template for %s", shared.ErrNotFound, usage)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns all templates.
func (r *Repository) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, usage, body, created_at FROM sms_templates ORDER BY usage, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Usage, &t.Body, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTemplate inserts a template.
func (r *Repository) CreateTemplate(ctx context.Context, t *Template) error {
	return r.pool.QueryRow(ctx, `INSERT INTO sms_templates (name, usage, body, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`,
		t.Name, string(t.Usage), t.Body).Scan(&t.ID, &t.CreatedAt)
}

// SetSMSWarning stores or clears the member's last SMS failure.
func (r *Repository) SetSMSWarning(ctx context.Context, memberID int64, warning string) error {
	_, err := r.pool.Exec(ctx, `UPDATE members SET sms_warning = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`, memberID, warning)
	return err
}

var (
	_ TemplateStore   = (*Repository)(nil)
	_ WarningRecorder = (*Repository)(nil)
)
