package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/domain/prayer"
)

const prayerSelect = `id, tenant_id, COALESCE(person_id::text, '') AS person_id, requester_name, body, visibility, status, answered_note, created_at, updated_at`

type prayerRow struct {
	ID            string    `db:"id"`
	TenantID      string    `db:"tenant_id"`
	PersonID      string    `db:"person_id"`
	RequesterName string    `db:"requester_name"`
	Body          string    `db:"body"`
	Visibility    string    `db:"visibility"`
	Status        string    `db:"status"`
	AnsweredNote  string    `db:"answered_note"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r prayerRow) domain() prayer.Request {
	return prayer.Request{
		ID: r.ID, TenantID: r.TenantID, PersonID: r.PersonID, RequesterName: r.RequesterName,
		Body: r.Body, Visibility: prayer.Visibility(r.Visibility), Status: prayer.Status(r.Status),
		AnsweredNote: r.AnsweredNote, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// --- PrayerStore ------------------------------------------------------------

func (s *Store) CreatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.UpdatedAt = r.CreatedAt

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		r.TenantID = tid
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prayer_requests (id, tenant_id, person_id, requester_name, body, visibility, status, answered_note, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10)
		`, r.ID, tid, r.PersonID, r.RequesterName, r.Body, string(r.Visibility), string(r.Status),
			r.AnsweredNote, r.CreatedAt, r.UpdatedAt)
		return err
	})
	if err != nil {
		return prayer.Request{}, err
	}
	return r, nil
}

func (s *Store) UpdatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error) {
	var row prayerRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `
			UPDATE prayer_requests
			SET person_id = NULLIF($2, '')::uuid, requester_name = $3, body = $4, visibility = $5,
			    status = $6, answered_note = $7, updated_at = $8
			WHERE id = $1
			RETURNING `+prayerSelect,
			r.ID, r.PersonID, r.RequesterName, r.Body, string(r.Visibility), string(r.Status), r.AnsweredNote, now())
	})
	if err != nil {
		return prayer.Request{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetPrayer(ctx context.Context, id string) (prayer.Request, error) {
	var row prayerRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `SELECT `+prayerSelect+` FROM prayer_requests WHERE id = $1`, id)
	})
	if err != nil {
		return prayer.Request{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListPrayers(ctx context.Context, filter prayer.Filter) ([]prayer.Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(filter.Visibilities) > 0 {
		levels := make([]string, 0, len(filter.Visibilities))
		for _, v := range filter.Visibilities {
			levels = append(levels, string(v))
		}
		args = append(args, pq.Array(levels))
		where = append(where, fmt.Sprintf("visibility = ANY($%d)", len(args)))
	}
	query := `SELECT ` + prayerSelect + ` FROM prayer_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []prayerRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	result := make([]prayer.Request, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) ArchiveOpenBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var n int64
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE prayer_requests SET status = 'archived', updated_at = $2
			WHERE status = 'open' AND created_at < $1
		`, cutoff, now())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}
