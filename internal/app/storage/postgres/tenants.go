package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/platform/database"
)

const tenantColumns = `id, name, slug, plan, ai_enabled, ai_token_quota, ai_quota_override, created_at, updated_at`

type tenantRow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	Slug            string    `db:"slug"`
	Plan            string    `db:"plan"`
	AIEnabled       bool      `db:"ai_enabled"`
	AITokenQuota    int64     `db:"ai_token_quota"`
	AIQuotaOverride bool      `db:"ai_quota_override"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r tenantRow) domain() tenant.Tenant {
	return tenant.Tenant{
		ID: r.ID, Name: r.Name, Slug: r.Slug, Plan: r.Plan,
		AIEnabled: r.AIEnabled, AITokenQuota: r.AITokenQuota, AIQuotaOverride: r.AIQuotaOverride,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toTenantRow(t tenant.Tenant) tenantRow {
	return tenantRow{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Plan: t.Plan,
		AIEnabled: t.AIEnabled, AITokenQuota: t.AITokenQuota, AIQuotaOverride: t.AIQuotaOverride,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

// --- TenantStore ------------------------------------------------------------

func (s *Store) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES (:id, :name, :slug, :plan, :ai_enabled, :ai_token_quota, :ai_quota_override, :created_at, :updated_at)
	`, toTenantRow(t))
	if err != nil {
		return tenant.Tenant{}, mapErr(err)
	}
	return t, nil
}

// ChangeTenantPlan decides between plan defaults and the override inside the
// UPDATE so a concurrent override write is never lost.
func (s *Store) ChangeTenantPlan(ctx context.Context, id, tier string, aiEnabled bool, quota int64) (tenant.Tenant, error) {
	var row tenantRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE tenants
		SET plan = $2,
		    ai_enabled = CASE WHEN ai_quota_override THEN ai_enabled ELSE $3 END,
		    ai_token_quota = CASE WHEN ai_quota_override THEN ai_token_quota ELSE $4 END,
		    updated_at = $5
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, tier, aiEnabled, quota, now())
	if err != nil {
		return tenant.Tenant{}, mapErr(err)
	}
	return row.domain(), nil
}

func (s *Store) SetTenantAIOverride(ctx context.Context, id string, enabled bool, quota int64) (tenant.Tenant, error) {
	var row tenantRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE tenants
		SET ai_enabled = $2, ai_token_quota = $3, ai_quota_override = TRUE, updated_at = $4
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, enabled, quota, now())
	if err != nil {
		return tenant.Tenant{}, mapErr(err)
	}
	return row.domain(), nil
}

// ClearTenantAIOverride locks the tenant row so the plan read for defaults
// cannot change before the write.
func (s *Store) ClearTenantAIOverride(ctx context.Context, id string, defaults func(tier string) (bool, int64, error)) (tenant.Tenant, error) {
	var row tenantRow
	err := database.InTenant(ctx, s.db, id, func(tx *sqlx.Tx) error {
		var tier string
		if err := tx.GetContext(ctx, &tier, `SELECT plan FROM tenants WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		enabled, quota, err := defaults(tier)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &row, `
			UPDATE tenants
			SET ai_enabled = $2, ai_token_quota = $3, ai_quota_override = FALSE, updated_at = $4
			WHERE id = $1
			RETURNING `+tenantColumns,
			id, enabled, quota, now())
	})
	if err != nil {
		return tenant.Tenant{}, mapErr(err)
	}
	return row.domain(), nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	return s.getTenant(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	return s.getTenant(ctx, `WHERE slug = $1`, slug)
}

func (s *Store) getTenant(ctx context.Context, where string, arg any) (tenant.Tenant, error) {
	var row tenantRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+tenantColumns+` FROM tenants `+where, arg); err != nil {
		return tenant.Tenant{}, mapErr(err)
	}
	return row.domain(), nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	var rows []tenantRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`); err != nil {
		return nil, err
	}
	result := make([]tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, tenant_id, email, name, role, password_hash, disabled, last_login_at, created_at, updated_at`

type userRow struct {
	ID           string       `db:"id"`
	TenantID     string       `db:"tenant_id"`
	Email        string       `db:"email"`
	Name         string       `db:"name"`
	Role         string       `db:"role"`
	PasswordHash string       `db:"password_hash"`
	Disabled     bool         `db:"disabled"`
	LastLoginAt  sql.NullTime `db:"last_login_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r userRow) domain() user.User {
	return user.User{
		ID: r.ID, TenantID: r.TenantID, Email: r.Email, Name: r.Name, Role: user.Role(r.Role),
		PasswordHash: r.PasswordHash, Disabled: r.Disabled, LastLoginAt: timePtr(r.LastLoginAt),
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// CreateUser locks the tenant row before counting so concurrent creates for
// one tenant serialize on the seat check.
func (s *Store) CreateUser(ctx context.Context, u user.User, maxUsers int) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		u.TenantID = tid
		if maxUsers > 0 {
			if _, err := tx.ExecContext(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, tid); err != nil {
				return err
			}
			var seats int
			if err := tx.GetContext(ctx, &seats, `SELECT count(*) FROM users`); err != nil {
				return err
			}
			if seats >= maxUsers {
				return storage.ErrLimitReached
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, u.ID, tid, u.Email, u.Name, string(u.Role), u.PasswordHash, u.Disabled, nullTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt)
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) SetUserRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	return s.setUserColumn(ctx, id, "role", string(role))
}

func (s *Store) SetUserDisabled(ctx context.Context, id string, disabled bool) (user.User, error) {
	return s.setUserColumn(ctx, id, "disabled", disabled)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.setUserColumn(ctx, id, "last_login_at", at.UTC())
	return err
}

// setUserColumn writes one column. column is always a constant from this file.
func (s *Store) setUserColumn(ctx context.Context, id, column string, value any) (user.User, error) {
	var row userRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `
			UPDATE users SET `+column+` = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+userColumns,
			id, value, now())
	})
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUser(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (user.User, error) {
	var row userRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users `+where, arg)
	})
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY email`)
	})
	if err != nil {
		return nil, err
	}
	result := make([]user.User, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}
