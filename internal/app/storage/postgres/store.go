// Package postgres implements the storage interfaces on Postgres. Every
// tenant-owned query runs inside database.InTenant so row-level security
// applies.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/internal/platform/database"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.PersonStore = (*Store)(nil)
var _ storage.BulletinStore = (*Store)(nil)
var _ storage.SermonStore = (*Store)(nil)
var _ storage.AttendanceStore = (*Store)(nil)
var _ storage.PrayerStore = (*Store)(nil)
var _ storage.DonationStore = (*Store)(nil)
var _ storage.SettingsStore = (*Store)(nil)
var _ storage.UsageStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// inTenant runs fn in a transaction scoped to the tenant on ctx.
func (s *Store) inTenant(ctx context.Context, fn func(tx *sqlx.Tx, tenantID string) error) error {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return err
	}
	return mapErr(database.InTenant(ctx, s.db, tid, func(tx *sqlx.Tx) error {
		return fn(tx, tid)
	}))
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotFound
	case database.IsUniqueViolation(err):
		return storage.ErrConflict
	}
	return err
}

func mustAffect(res sql.Result) error {
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }

// textArray keeps NOT NULL text[] columns from receiving NULL.
func textArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

func fromArray(values pq.StringArray) []string {
	if len(values) == 0 {
		return nil
	}
	return []string(values)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time.UTC()
	return &ts
}
