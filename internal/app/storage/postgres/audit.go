package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/flockhq/flock/internal/app/domain/audit"
	"github.com/flockhq/flock/internal/platform/database"
)

type auditRow struct {
	TenantID   string    `db:"tenant_id"`
	UserID     string    `db:"user_id"`
	Role       string    `db:"role"`
	Method     string    `db:"method"`
	Path       string    `db:"path"`
	Status     int       `db:"status"`
	TraceID    string    `db:"trace_id"`
	RemoteAddr string    `db:"remote_addr"`
	UserAgent  string    `db:"user_agent"`
	CreatedAt  time.Time `db:"created_at"`
}

// --- AuditStore -------------------------------------------------------------

// AppendAudit persists e under its own tenant. Entries without a tenant
// (platform and anonymous calls) are not persisted.
func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) error {
	if e.TenantID == "" {
		return nil
	}
	row := auditRow{
		TenantID: e.TenantID, UserID: e.UserID, Role: e.Role, Method: e.Method, Path: e.Path,
		Status: e.Status, TraceID: e.TraceID, RemoteAddr: e.RemoteAddr, UserAgent: e.UserAgent,
		CreatedAt: e.Time,
	}
	return database.InTenant(ctx, s.db, e.TenantID, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO audit_log (tenant_id, user_id, role, method, path, status, trace_id, remote_addr, user_agent, created_at)
			VALUES (:tenant_id, :user_id, :role, :method, :path, :status, :trace_id, :remote_addr, :user_agent, :created_at)
		`, row)
		return err
	})
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []auditRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `
			SELECT tenant_id, user_id, role, method, path, status, trace_id, remote_addr, user_agent, created_at
			FROM audit_log ORDER BY created_at DESC, id DESC LIMIT $1
		`, limit)
	})
	if err != nil {
		return nil, err
	}
	result := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		result = append(result, audit.Entry{
			Time: r.CreatedAt.UTC(), TenantID: r.TenantID, UserID: r.UserID, Role: r.Role, Method: r.Method,
			Path: r.Path, Status: r.Status, TraceID: r.TraceID, RemoteAddr: r.RemoteAddr, UserAgent: r.UserAgent,
		})
	}
	return result, nil
}
