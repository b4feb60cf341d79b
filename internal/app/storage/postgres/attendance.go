package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/civil"
)

const countColumns = `id, tenant_id, service_date, service_name, headcount, notes, recorded_at`
const checkInColumns = `id, tenant_id, person_id, service_date, service_name, checked_in_at`

type countRow struct {
	ID          string     `db:"id"`
	TenantID    string     `db:"tenant_id"`
	ServiceDate civil.Date `db:"service_date"`
	ServiceName string     `db:"service_name"`
	Headcount   int        `db:"headcount"`
	Notes       string     `db:"notes"`
	RecordedAt  time.Time  `db:"recorded_at"`
}

func (r countRow) domain() attendance.Count {
	return attendance.Count{
		ID: r.ID, TenantID: r.TenantID, ServiceDate: r.ServiceDate, ServiceName: r.ServiceName,
		Headcount: r.Headcount, Notes: r.Notes, RecordedAt: r.RecordedAt.UTC(),
	}
}

type checkInRow struct {
	ID          string     `db:"id"`
	TenantID    string     `db:"tenant_id"`
	PersonID    string     `db:"person_id"`
	ServiceDate civil.Date `db:"service_date"`
	ServiceName string     `db:"service_name"`
	CheckedInAt time.Time  `db:"checked_in_at"`
}

func (r checkInRow) domain() attendance.CheckIn {
	return attendance.CheckIn{
		ID: r.ID, TenantID: r.TenantID, PersonID: r.PersonID, ServiceDate: r.ServiceDate,
		ServiceName: r.ServiceName, CheckedInAt: r.CheckedInAt.UTC(),
	}
}

// --- AttendanceStore --------------------------------------------------------

func (s *Store) UpsertCount(ctx context.Context, c attendance.Count) (attendance.Count, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var row countRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		return tx.GetContext(ctx, &row, `
			INSERT INTO attendance_counts (`+countColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tenant_id, service_date, service_name) DO UPDATE
			SET headcount = EXCLUDED.headcount, notes = EXCLUDED.notes, recorded_at = EXCLUDED.recorded_at
			RETURNING `+countColumns,
			c.ID, tid, c.ServiceDate, c.ServiceName, c.Headcount, c.Notes, now())
	})
	if err != nil {
		return attendance.Count{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListCounts(ctx context.Context, from, to civil.Date) ([]attendance.Count, error) {
	var rows []countRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `
			SELECT `+countColumns+` FROM attendance_counts
			WHERE ($1::date IS NULL OR service_date >= $1::date)
			  AND ($2::date IS NULL OR service_date <= $2::date)
			ORDER BY service_date, service_name
		`, from, to)
	})
	if err != nil {
		return nil, err
	}
	result := make([]attendance.Count, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) RecordCheckIn(ctx context.Context, c attendance.CheckIn) (attendance.CheckIn, bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckedInAt.IsZero() {
		c.CheckedInAt = now()
	}
	var (
		row     checkInRow
		created bool
	)
	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO check_ins (`+checkInColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, person_id, service_date, service_name) DO NOTHING
		`, c.ID, tid, c.PersonID, c.ServiceDate, c.ServiceName, c.CheckedInAt)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		created = n > 0
		return tx.GetContext(ctx, &row, `
			SELECT `+checkInColumns+` FROM check_ins
			WHERE person_id = $1 AND service_date = $2 AND service_name = $3
		`, c.PersonID, c.ServiceDate, c.ServiceName)
	})
	if err != nil {
		return attendance.CheckIn{}, false, err
	}
	return row.domain(), created, nil
}

func (s *Store) CountUniqueAttendees(ctx context.Context, from, to civil.Date) (int, error) {
	var n int
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &n, `
			SELECT count(DISTINCT person_id) FROM check_ins
			WHERE ($1::date IS NULL OR service_date >= $1::date)
			  AND ($2::date IS NULL OR service_date <= $2::date)
		`, from, to)
	})
	return n, err
}
