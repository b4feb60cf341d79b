package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/donation"
)

const donationSelect = `id, tenant_id, COALESCE(person_id::text, '') AS person_id, amount_cents, currency, fund, method, received_on, reference, note, created_at`

type donationRow struct {
	ID          string     `db:"id"`
	TenantID    string     `db:"tenant_id"`
	PersonID    string     `db:"person_id"`
	AmountCents int64      `db:"amount_cents"`
	Currency    string     `db:"currency"`
	Fund        string     `db:"fund"`
	Method      string     `db:"method"`
	ReceivedOn  civil.Date `db:"received_on"`
	Reference   string     `db:"reference"`
	Note        string     `db:"note"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r donationRow) domain() donation.Donation {
	return donation.Donation{
		ID: r.ID, TenantID: r.TenantID, PersonID: r.PersonID, AmountCents: r.AmountCents,
		Currency: r.Currency, Fund: r.Fund, Method: donation.Method(r.Method), ReceivedOn: r.ReceivedOn,
		Reference: r.Reference, Note: r.Note, CreatedAt: r.CreatedAt.UTC(),
	}
}

// --- DonationStore ----------------------------------------------------------

func (s *Store) CreateDonation(ctx context.Context, d donation.Donation) (donation.Donation, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = now()

	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		d.TenantID = tid
		_, err := tx.ExecContext(ctx, `
			INSERT INTO donations (id, tenant_id, person_id, amount_cents, currency, fund, method, received_on, reference, note, created_at)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11)
		`, d.ID, tid, d.PersonID, d.AmountCents, d.Currency, d.Fund, string(d.Method), d.ReceivedOn,
			d.Reference, d.Note, d.CreatedAt)
		return err
	})
	if err != nil {
		return donation.Donation{}, err
	}
	return d, nil
}

func (s *Store) ListDonations(ctx context.Context, filter donation.Filter) ([]donation.Donation, error) {
	var rows []donationRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `
			SELECT `+donationSelect+` FROM donations
			WHERE ($1::date IS NULL OR received_on >= $1::date)
			  AND ($2::date IS NULL OR received_on <= $2::date)
			  AND ($3 = '' OR fund = $3)
			  AND ($4 = '' OR person_id = NULLIF($4, '')::uuid)
			ORDER BY received_on, created_at
		`, filter.From, filter.To, filter.Fund, filter.PersonID)
	})
	if err != nil {
		return nil, err
	}
	result := make([]donation.Donation, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) FundTotals(ctx context.Context, from, to civil.Date) ([]donation.FundTotal, error) {
	var rows []struct {
		Fund       string `db:"fund"`
		Currency   string `db:"currency"`
		TotalCents int64  `db:"total_cents"`
		Count      int    `db:"count"`
	}
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.SelectContext(ctx, &rows, `
			SELECT fund, currency, sum(amount_cents) AS total_cents, count(*) AS count
			FROM donations
			WHERE ($1::date IS NULL OR received_on >= $1::date)
			  AND ($2::date IS NULL OR received_on <= $2::date)
			GROUP BY fund, currency
			ORDER BY fund, currency
		`, from, to)
	})
	if err != nil {
		return nil, err
	}
	result := make([]donation.FundTotal, 0, len(rows))
	for _, r := range rows {
		result = append(result, donation.FundTotal{Fund: r.Fund, Currency: r.Currency, TotalCents: r.TotalCents, Count: r.Count})
	}
	return result, nil
}
