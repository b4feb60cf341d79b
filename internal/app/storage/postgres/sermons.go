package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/sermon"
)

const sermonColumns = `id, tenant_id, title, speaker, preached_on, series, scripture, outline, notes, status, media_url, created_at, updated_at`

type sermonRow struct {
	ID         string         `db:"id"`
	TenantID   string         `db:"tenant_id"`
	Title      string         `db:"title"`
	Speaker    string         `db:"speaker"`
	PreachedOn civil.Date     `db:"preached_on"`
	Series     string         `db:"series"`
	Scripture  pq.StringArray `db:"scripture"`
	Outline    pq.StringArray `db:"outline"`
	Notes      string         `db:"notes"`
	Status     string         `db:"status"`
	MediaURL   string         `db:"media_url"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r sermonRow) domain() sermon.Sermon {
	return sermon.Sermon{
		ID: r.ID, TenantID: r.TenantID, Title: r.Title, Speaker: r.Speaker, PreachedOn: r.PreachedOn,
		Series: r.Series, Scripture: fromArray(r.Scripture), Outline: fromArray(r.Outline), Notes: r.Notes,
		Status: sermon.Status(r.Status), MediaURL: r.MediaURL,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// --- SermonStore ------------------------------------------------------------

func (s *Store) CreateSermon(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	sm.CreatedAt = now()
	sm.UpdatedAt = sm.CreatedAt

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		sm.TenantID = tid
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sermons (`+sermonColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, sm.ID, tid, sm.Title, sm.Speaker, sm.PreachedOn, sm.Series, textArray(sm.Scripture),
			textArray(sm.Outline), sm.Notes, string(sm.Status), sm.MediaURL, sm.CreatedAt, sm.UpdatedAt)
		return err
	})
	if err != nil {
		return sermon.Sermon{}, err
	}
	return sm, nil
}

func (s *Store) UpdateSermon(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	var row sermonRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `
			UPDATE sermons
			SET title = $2, speaker = $3, preached_on = $4, series = $5, scripture = $6, outline = $7,
			    notes = $8, status = $9, media_url = $10, updated_at = $11
			WHERE id = $1
			RETURNING `+sermonColumns,
			sm.ID, sm.Title, sm.Speaker, sm.PreachedOn, sm.Series, textArray(sm.Scripture),
			textArray(sm.Outline), sm.Notes, string(sm.Status), sm.MediaURL, now())
	})
	if err != nil {
		return sermon.Sermon{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetSermon(ctx context.Context, id string) (sermon.Sermon, error) {
	var row sermonRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `SELECT `+sermonColumns+` FROM sermons WHERE id = $1`, id)
	})
	if err != nil {
		return sermon.Sermon{}, err
	}
	return row.domain(), nil
}

func (s *Store) DeleteSermon(ctx context.Context, id string) error {
	return s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sermons WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (s *Store) ListSermons(ctx context.Context, filter sermon.Filter) ([]sermon.Sermon, error) {
	var (
		where []string
		args  []any
	)
	if filter.Series != "" {
		args = append(args, filter.Series)
		where = append(where, fmt.Sprintf("series = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + sermonColumns + ` FROM sermons`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY preached_on DESC NULLS LAST, title"

	var rows []sermonRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	result := make([]sermon.Sermon, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) ListSeries(ctx context.Context) ([]sermon.SeriesCount, error) {
	result := make([]sermon.SeriesCount, 0)
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &result, `
			SELECT series, count(*) AS count FROM sermons
			WHERE series <> ''
			GROUP BY series ORDER BY series
		`)
	})
	return result, err
}
