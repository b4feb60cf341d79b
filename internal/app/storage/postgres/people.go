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
	"github.com/flockhq/flock/internal/app/domain/person"
)

const personColumns = `id, tenant_id, first_name, last_name, email, phone, status, household, birthday, joined_on, tags, notes, created_at, updated_at`

type personRow struct {
	ID        string         `db:"id"`
	TenantID  string         `db:"tenant_id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Phone     string         `db:"phone"`
	Status    string         `db:"status"`
	Household string         `db:"household"`
	Birthday  civil.Date     `db:"birthday"`
	JoinedOn  civil.Date     `db:"joined_on"`
	Tags      pq.StringArray `db:"tags"`
	Notes     string         `db:"notes"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r personRow) domain() person.Person {
	return person.Person{
		ID: r.ID, TenantID: r.TenantID, FirstName: r.FirstName, LastName: r.LastName,
		Email: r.Email, Phone: r.Phone, Status: person.Status(r.Status), Household: r.Household,
		Birthday: r.Birthday, JoinedOn: r.JoinedOn, Tags: fromArray(r.Tags), Notes: r.Notes,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toPersonRow(p person.Person) personRow {
	return personRow{
		ID: p.ID, TenantID: p.TenantID, FirstName: p.FirstName, LastName: p.LastName,
		Email: p.Email, Phone: p.Phone, Status: string(p.Status), Household: p.Household,
		Birthday: p.Birthday, JoinedOn: p.JoinedOn, Tags: textArray(p.Tags), Notes: p.Notes,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// --- PersonStore ------------------------------------------------------------

func (s *Store) CreatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		p.TenantID = tid
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO people (`+personColumns+`)
			VALUES (:id, :tenant_id, :first_name, :last_name, :email, :phone, :status, :household,
			        :birthday, :joined_on, :tags, :notes, :created_at, :updated_at)
		`, toPersonRow(p))
		return err
	})
	if err != nil {
		return person.Person{}, err
	}
	return p, nil
}

func (s *Store) UpdatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	var row personRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `
			UPDATE people
			SET first_name = $2, last_name = $3, email = $4, phone = $5, status = $6, household = $7,
			    birthday = $8, joined_on = $9, tags = $10, notes = $11, updated_at = $12
			WHERE id = $1
			RETURNING `+personColumns,
			p.ID, p.FirstName, p.LastName, p.Email, p.Phone, string(p.Status), p.Household,
			p.Birthday, p.JoinedOn, textArray(p.Tags), p.Notes, now())
	})
	if err != nil {
		return person.Person{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (person.Person, error) {
	var row personRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `SELECT `+personColumns+` FROM people WHERE id = $1`, id)
	})
	if err != nil {
		return person.Person{}, err
	}
	return row.domain(), nil
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (s *Store) ListPeople(ctx context.Context, filter person.Filter) ([]person.Person, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR (first_name || ' ' || last_name) ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM unnest(tags) t WHERE lower(t) = lower("+arg(filter.Tag)+"))")
	}

	query := `SELECT ` + personColumns + ` FROM people`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_name, first_name, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	var rows []personRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	result := make([]person.Person, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) CountPeopleByStatus(ctx context.Context) (map[person.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `SELECT status, count(*) AS count FROM people GROUP BY status`)
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[person.Status]int, len(rows))
	for _, r := range rows {
		counts[person.Status(r.Status)] = r.Count
	}
	return counts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
