package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrAuditIncomplete is returned for entries missing action, entity or id.
var ErrAuditIncomplete = errors.New("audit entry requires action, entity and entity id")

// AuditLog is one row of audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditExecer is satisfied by *pgxpool.Pool and pgx.Tx.
type AuditExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger appends membership and billing changes to audit_logs.
type AuditLogger struct {
	exec AuditExecer
}

func NewAuditLogger(exec AuditExecer) *AuditLogger {
	return &AuditLogger{exec: exec}
}

// Record stores the entry. A zero At lets the database stamp it.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.exec == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return ErrAuditIncomplete
	}
	var meta []byte
	if len(log.Meta) > 0 {
		raw, err := json.Marshal(log.Meta)
		if err != nil {
			return fmt.Errorf("audit meta: %w", err)
		}
		meta = raw
	}
	var at *time.Time
	if !log.At.IsZero() {
		utc := log.At.UTC()
		at = &utc
	}
	_, err := l.exec.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, meta, at)
	if err != nil {
		return fmt.Errorf("audit %s %s/%s: %w", log.Action, log.Entity, log.EntityID, err)
	}
	return nil
}
