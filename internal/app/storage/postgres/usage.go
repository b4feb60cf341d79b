package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/platform/database"
)

type usageRow struct {
	TenantID   string    `db:"tenant_id"`
	Period     string    `db:"period"`
	TokensUsed int64     `db:"tokens_used"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r usageRow) domain() plan.Usage {
	return plan.Usage{TenantID: r.TenantID, Period: r.Period, TokensUsed: r.TokensUsed, UpdatedAt: r.UpdatedAt.UTC()}
}

// --- UsageStore -------------------------------------------------------------

func (s *Store) GetUsage(ctx context.Context, tenantID, period string) (plan.Usage, error) {
	var row usageRow
	err := database.InTenant(ctx, s.db, tenantID, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row, `
			SELECT tenant_id, period, tokens_used, updated_at FROM ai_usage
			WHERE tenant_id = $1 AND period = $2
		`, tenantID, period)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Usage{TenantID: tenantID, Period: period}, nil
	}
	if err != nil {
		return plan.Usage{}, err
	}
	return row.domain(), nil
}

// ConsumeTokens increments usage in one conditional upsert. When the guard
// fails no row is returned and the quota is reported as exceeded.
func (s *Store) ConsumeTokens(ctx context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error) {
	var row usageRow
	err := database.InTenant(ctx, s.db, tenantID, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row, `
			INSERT INTO ai_usage (tenant_id, period, tokens_used, updated_at)
			SELECT $1::uuid, $2::text, $3::bigint, $5::timestamptz
			WHERE $3::bigint <= $4::bigint
			ON CONFLICT (tenant_id, period) DO UPDATE
			SET tokens_used = ai_usage.tokens_used + EXCLUDED.tokens_used,
			    updated_at = EXCLUDED.updated_at
			WHERE ai_usage.tokens_used + EXCLUDED.tokens_used <= $4::bigint
			RETURNING tenant_id, period, tokens_used, updated_at
		`, tenantID, period, tokens, quota, now())
	})
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := s.GetUsage(ctx, tenantID, period)
		if getErr != nil {
			return plan.Usage{}, storage.ErrQuotaExceeded
		}
		return current, storage.ErrQuotaExceeded
	}
	if err != nil {
		return plan.Usage{}, err
	}
	return row.domain(), nil
}

// ChargeTokens records spent tokens, saturating at quota. A row already past
// quota is left as is.
func (s *Store) ChargeTokens(ctx context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error) {
	var row usageRow
	err := database.InTenant(ctx, s.db, tenantID, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row, `
			INSERT INTO ai_usage (tenant_id, period, tokens_used, updated_at)
			VALUES ($1::uuid, $2::text, LEAST($3::bigint, $4::bigint), $5::timestamptz)
			ON CONFLICT (tenant_id, period) DO UPDATE
			SET tokens_used = GREATEST(ai_usage.tokens_used, LEAST(ai_usage.tokens_used + $3::bigint, $4::bigint)),
			    updated_at = EXCLUDED.updated_at
			RETURNING tenant_id, period, tokens_used, updated_at
		`, tenantID, period, tokens, quota, now())
	})
	if err != nil {
		return plan.Usage{}, err
	}
	return row.domain(), nil
}

func (s *Store) PruneUsageBefore(ctx context.Context, tenantID, period string) (int, error) {
	var n int64
	err := database.InTenant(ctx, s.db, tenantID, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM ai_usage WHERE tenant_id = $1 AND period < $2`, tenantID, period)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}
