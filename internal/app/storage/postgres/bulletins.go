package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
)

const bulletinColumns = `id, tenant_id, service_date, title, theme, theme_verse, status, published_at, created_at, updated_at`

type bulletinRow struct {
	ID          string       `db:"id"`
	TenantID    string       `db:"tenant_id"`
	ServiceDate civil.Date   `db:"service_date"`
	Title       string       `db:"title"`
	Theme       string       `db:"theme"`
	ThemeVerse  string       `db:"theme_verse"`
	Status      string       `db:"status"`
	PublishedAt sql.NullTime `db:"published_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r bulletinRow) domain() bulletin.Bulletin {
	return bulletin.Bulletin{
		ID: r.ID, TenantID: r.TenantID, ServiceDate: r.ServiceDate, Title: r.Title,
		Theme: r.Theme, ThemeVerse: r.ThemeVerse, Status: bulletin.Status(r.Status),
		PublishedAt: timePtr(r.PublishedAt), CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
		Items: []bulletin.Item{}, Announcements: []bulletin.Announcement{},
	}
}

type itemRow struct {
	BulletinID string `db:"bulletin_id"`
	Position   int    `db:"position"`
	Kind       string `db:"kind"`
	Title      string `db:"title"`
	Detail     string `db:"detail"`
	Leader     string `db:"leader"`
}

type announcementRow struct {
	BulletinID string     `db:"bulletin_id"`
	Position   int        `db:"position"`
	Title      string     `db:"title"`
	Body       string     `db:"body"`
	Priority   int        `db:"priority"`
	StartsOn   civil.Date `db:"starts_on"`
	EndsOn     civil.Date `db:"ends_on"`
}

// --- BulletinStore ----------------------------------------------------------

func (s *Store) CreateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		b.TenantID = tid
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bulletins (`+bulletinColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, b.ID, tid, b.ServiceDate, b.Title, b.Theme, b.ThemeVerse, string(b.Status),
			nullTime(b.PublishedAt), b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return err
		}
		return insertBulletinChildren(ctx, tx, tid, b)
	})
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	return b, nil
}

func (s *Store) UpdateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	var row bulletinRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		err := tx.GetContext(ctx, &row, `
			UPDATE bulletins
			SET service_date = $2, title = $3, theme = $4, theme_verse = $5, status = $6,
			    published_at = $7, updated_at = $8
			WHERE id = $1
			RETURNING `+bulletinColumns,
			b.ID, b.ServiceDate, b.Title, b.Theme, b.ThemeVerse, string(b.Status), nullTime(b.PublishedAt), now())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bulletin_items WHERE bulletin_id = $1`, b.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM announcements WHERE bulletin_id = $1`, b.ID); err != nil {
			return err
		}
		return insertBulletinChildren(ctx, tx, tid, b)
	})
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	out := row.domain()
	out.Items = append(out.Items, b.Items...)
	out.Announcements = append(out.Announcements, b.Announcements...)
	return out, nil
}

func insertBulletinChildren(ctx context.Context, tx *sqlx.Tx, tid string, b bulletin.Bulletin) error {
	for _, it := range b.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bulletin_items (bulletin_id, tenant_id, position, kind, title, detail, leader)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, b.ID, tid, it.Position, string(it.Kind), it.Title, it.Detail, it.Leader); err != nil {
			return err
		}
	}
	for i, a := range b.Announcements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO announcements (bulletin_id, tenant_id, position, title, body, priority, starts_on, ends_on)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, b.ID, tid, i+1, a.Title, a.Body, a.Priority, a.StartsOn, a.EndsOn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetBulletin(ctx context.Context, id string) (bulletin.Bulletin, error) {
	var out bulletin.Bulletin
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		var row bulletinRow
		if err := tx.GetContext(ctx, &row, `SELECT `+bulletinColumns+` FROM bulletins WHERE id = $1`, id); err != nil {
			return err
		}
		list, err := attachChildren(ctx, tx, []bulletinRow{row})
		if err != nil {
			return err
		}
		out = list[0]
		return nil
	})
	return out, err
}

func (s *Store) DeleteBulletin(ctx context.Context, id string) error {
	return s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM bulletins WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (s *Store) ListBulletins(ctx context.Context, from, to civil.Date) ([]bulletin.Bulletin, error) {
	var out []bulletin.Bulletin
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		var rows []bulletinRow
		err := tx.SelectContext(ctx, &rows, `
			SELECT `+bulletinColumns+` FROM bulletins
			WHERE ($1::date IS NULL OR service_date >= $1::date)
			  AND ($2::date IS NULL OR service_date <= $2::date)
			ORDER BY service_date, created_at
		`, from, to)
		if err != nil {
			return err
		}
		out, err = attachChildren(ctx, tx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func attachChildren(ctx context.Context, tx *sqlx.Tx, rows []bulletinRow) ([]bulletin.Bulletin, error) {
	result := make([]bulletin.Bulletin, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		ids = append(ids, r.ID)
		index[r.ID] = i
		result = append(result, r.domain())
	}

	var items []itemRow
	if err := tx.SelectContext(ctx, &items, `
		SELECT bulletin_id, position, kind, title, detail, leader
		FROM bulletin_items WHERE bulletin_id = ANY($1::uuid[])
		ORDER BY bulletin_id, position
	`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, it := range items {
		b := &result[index[it.BulletinID]]
		b.Items = append(b.Items, bulletin.Item{
			Position: it.Position, Kind: bulletin.ItemKind(it.Kind), Title: it.Title, Detail: it.Detail, Leader: it.Leader,
		})
	}

	var anns []announcementRow
	if err := tx.SelectContext(ctx, &anns, `
		SELECT bulletin_id, position, title, body, priority, starts_on, ends_on
		FROM announcements WHERE bulletin_id = ANY($1::uuid[])
		ORDER BY bulletin_id, position
	`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, a := range anns {
		b := &result[index[a.BulletinID]]
		b.Announcements = append(b.Announcements, bulletin.Announcement{
			Title: a.Title, Body: a.Body, Priority: a.Priority, StartsOn: a.StartsOn, EndsOn: a.EndsOn,
		})
	}
	return result, nil
}
