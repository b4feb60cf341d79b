// Package donations records gifts and produces giving statements.
package donations

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/donation"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// DefaultCurrency applies when a donation names none.
const DefaultCurrency = "USD"

// Service records donations.
type Service struct {
	store    storage.DonationStore
	people   storage.PersonStore
	settings storage.SettingsStore
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a donation service.
func New(store storage.DonationStore, people storage.PersonStore, settings storage.SettingsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("donations")
	}
	return &Service{store: store, people: people, settings: settings, log: log, now: time.Now}
}

// Record stores a gift. Amounts are in minor units.
func (s *Service) Record(ctx context.Context, d donation.Donation) (donation.Donation, error) {
	if d.AmountCents <= 0 {
		return donation.Donation{}, apperrors.Validation("amount must be positive")
	}
	d.Fund = strings.TrimSpace(d.Fund)
	if d.Fund == "" {
		return donation.Donation{}, apperrors.Validation("fund is required")
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	if _, err := currency.ParseISO(d.Currency); err != nil {
		return donation.Donation{}, apperrors.Validationf("unknown currency %q", d.Currency)
	}
	if d.Method == "" {
		d.Method = donation.MethodCash
	}
	if !d.Method.Valid() {
		return donation.Donation{}, apperrors.Validationf("unknown method %q", d.Method)
	}
	if d.ReceivedOn.IsZero() {
		st, err := s.loadSettings(ctx)
		if err != nil {
			return donation.Donation{}, err
		}
		d.ReceivedOn = civil.DateOf(s.now().In(st.Location()))
	}
	if d.PersonID != "" {
		if _, err := s.people.GetPerson(ctx, d.PersonID); err != nil {
			return donation.Donation{}, storage.Translate(err, "person", d.PersonID)
		}
	}

	created, err := s.store.CreateDonation(ctx, d)
	if err != nil {
		return donation.Donation{}, storage.Translate(err, "donation", d.ID)
	}
	tenantID, _ := tenancy.FromContext(ctx)
	s.log.WithField("tenant_id", tenantID).
		WithField("donation_id", created.ID).
		WithField("fund", created.Fund).
		WithField("method", created.Method).
		Info("donation recorded")
	return created, nil
}

// List returns donations matching filter, newest first.
func (s *Service) List(ctx context.Context, filter donation.Filter) ([]donation.Donation, error) {
	if err := checkRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	filter.Fund = strings.TrimSpace(filter.Fund)
	return s.store.ListDonations(ctx, filter)
}

// FundTotals sums donations per fund and currency over [from, to].
func (s *Service) FundTotals(ctx context.Context, from, to civil.Date) ([]donation.FundTotal, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.store.FundTotals(ctx, from, to)
}

// MonthToDate returns this month's totals per currency, in the tenant's
// timezone.
func (s *Service) MonthToDate(ctx context.Context) (map[string]int64, error) {
	st, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	today := civil.DateOf(s.now().In(st.Location()))
	first := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	funds, err := s.store.FundTotals(ctx, first, today)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	for _, f := range funds {
		totals[f.Currency] += f.TotalCents
	}
	return totals, nil
}

// StatementLine is one gift on a giving statement.
type StatementLine struct {
	ReceivedOn  civil.Date      `json:"received_on"`
	Fund        string          `json:"fund"`
	Method      donation.Method `json:"method"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Amount      string          `json:"amount"`
}

// StatementTotal sums a statement per currency.
type StatementTotal struct {
	Currency   string `json:"currency"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

// Statement is a year-end giving statement for one person.
type Statement struct {
	ChurchName string           `json:"church_name"`
	PersonID   string           `json:"person_id"`
	PersonName string           `json:"person_name"`
	Year       int              `json:"year"`
	Lines      []StatementLine  `json:"lines"`
	Totals     []StatementTotal `json:"totals"`
}

// Statement builds the giving statement for personID in year, with amounts
// formatted for the tenant's locale.
func (s *Service) Statement(ctx context.Context, personID string, year int) (Statement, error) {
	if year < 1900 || year > 9999 {
		return Statement{}, apperrors.Validationf("year %d out of range", year)
	}
	p, err := s.people.GetPerson(ctx, personID)
	if err != nil {
		return Statement{}, storage.Translate(err, "person", personID)
	}
	st, err := s.loadSettings(ctx)
	if err != nil {
		return Statement{}, err
	}
	gifts, err := s.store.ListDonations(ctx, donation.Filter{
		From:     civil.Date{Year: year, Month: time.January, Day: 1},
		To:       civil.Date{Year: year, Month: time.December, Day: 31},
		PersonID: personID,
	})
	if err != nil {
		return Statement{}, err
	}
	sort.SliceStable(gifts, func(i, j int) bool { return gifts[i].ReceivedOn.Before(gifts[j].ReceivedOn) })

	printer := message.NewPrinter(localeTag(st.Locale))
	out := Statement{
		ChurchName: st.Branding.ChurchName,
		PersonID:   p.ID,
		PersonName: p.FullName(),
		Year:       year,
		Lines:      make([]StatementLine, 0, len(gifts)),
	}
	sums := make(map[string]int64)
	for _, g := range gifts {
		out.Lines = append(out.Lines, StatementLine{
			ReceivedOn:  g.ReceivedOn,
			Fund:        g.Fund,
			Method:      g.Method,
			AmountCents: g.AmountCents,
			Currency:    g.Currency,
			Amount:      FormatAmount(printer, g.AmountCents, g.Currency),
		})
		sums[g.Currency] += g.AmountCents
	}
	for code, cents := range sums {
		out.Totals = append(out.Totals, StatementTotal{Currency: code, TotalCents: cents, Total: FormatAmount(printer, cents, code)})
	}
	sort.Slice(out.Totals, func(i, j int) bool { return out.Totals[i].Currency < out.Totals[j].Currency })
	return out, nil
}

// FormatAmount renders minor units as a localized currency amount.
func FormatAmount(p *message.Printer, cents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%.2f %s", float64(cents)/100, code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(cents)
	for i := 0; i < scale; i++ {
		value /= 10
	}
	return p.Sprint(currency.Symbol(unit.Amount(value)))
}

func localeTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

func (s *Service) loadSettings(ctx context.Context) (settings.Settings, error) {
	st, err := s.settings.GetSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		tenantID, _ := tenancy.FromContext(ctx)
		return settings.Defaults(tenantID), nil
	}
	return st, err
}

func checkRange(from, to civil.Date) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return apperrors.Validation("to must not be before from")
	}
	return nil
}
