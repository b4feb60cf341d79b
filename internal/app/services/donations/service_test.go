package donations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/donation"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func setup(t *testing.T) (*Service, *memory.Store, context.Context) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, store, logger.Discard())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC) }
	return svc, store, tenancy.WithTenant(context.Background(), "tenant-a")
}

func TestRecordDefaultsAndValidation(t *testing.T) {
	svc, _, ctx := setup(t)

	d, err := svc.Record(ctx, donation.Donation{AmountCents: 2500, Fund: " General ", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "General", d.Fund)
	assert.Equal(t, donation.MethodCash, d.Method)
	assert.Equal(t, "2024-03-15", d.ReceivedOn.String())

	bad := []donation.Donation{
		{AmountCents: 0, Fund: "General"},
		{AmountCents: 100, Fund: ""},
		{AmountCents: 100, Fund: "General", Currency: "XXZ"},
		{AmountCents: 100, Fund: "General", Method: "barter"},
	}
	for _, b := range bad {
		_, err := svc.Record(ctx, b)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "%+v: %v", b, err)
	}
	_, err = svc.Record(ctx, donation.Donation{AmountCents: 100, Fund: "General", PersonID: "ghost"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestFundTotalsAndMonthToDate(t *testing.T) {
	svc, _, ctx := setup(t)
	for _, d := range []donation.Donation{
		{AmountCents: 10000, Fund: "General", ReceivedOn: civil.MustParse("2024-03-03")},
		{AmountCents: 5000, Fund: "General", ReceivedOn: civil.MustParse("2024-03-10")},
		{AmountCents: 2000, Fund: "Missions", ReceivedOn: civil.MustParse("2024-03-10")},
		{AmountCents: 9999, Fund: "General", ReceivedOn: civil.MustParse("2024-02-25")},
	} {
		_, err := svc.Record(ctx, d)
		require.NoError(t, err)
	}

	totals, err := svc.FundTotals(ctx, civil.MustParse("2024-03-01"), civil.MustParse("2024-03-31"))
	require.NoError(t, err)
	byFund := map[string]int64{}
	for _, ft := range totals {
		byFund[ft.Fund] = ft.TotalCents
	}
	assert.Equal(t, map[string]int64{"General": 15000, "Missions": 2000}, byFund)

	mtd, err := svc.MonthToDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17000), mtd["USD"])
}

func TestStatement(t *testing.T) {
	svc, store, ctx := setup(t)
	p, err := store.CreatePerson(ctx, person.Person{FirstName: "Lydia", LastName: "Thyatira"})
	require.NoError(t, err)

	for _, d := range []donation.Donation{
		{PersonID: p.ID, AmountCents: 123450, Fund: "Building", ReceivedOn: civil.MustParse("2023-11-05")},
		{PersonID: p.ID, AmountCents: 2500, Fund: "General", ReceivedOn: civil.MustParse("2023-01-08")},
		{PersonID: p.ID, AmountCents: 7000, Fund: "General", ReceivedOn: civil.MustParse("2024-01-07")},
		{AmountCents: 100, Fund: "General", ReceivedOn: civil.MustParse("2023-06-01")},
	} {
		_, err := svc.Record(ctx, d)
		require.NoError(t, err)
	}

	st, err := svc.Statement(ctx, p.ID, 2023)
	require.NoError(t, err)
	assert.Equal(t, "Lydia Thyatira", st.PersonName)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "2023-01-08", st.Lines[0].ReceivedOn.String())
	require.Len(t, st.Totals, 1)
	assert.Equal(t, int64(125950), st.Totals[0].TotalCents)
	assert.True(t, strings.Contains(st.Totals[0].Total, "$"), st.Totals[0].Total)
	assert.True(t, strings.Contains(st.Totals[0].Total, "259.50"), st.Totals[0].Total)

	_, err = svc.Statement(ctx, p.ID, 12)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = svc.Statement(ctx, "ghost", 2023)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestFormatAmountZeroDecimalCurrency(t *testing.T) {
	p := message.NewPrinter(language.AmericanEnglish)
	got := FormatAmount(p, 500, "JPY")
	assert.Contains(t, got, "500")
	assert.NotContains(t, got, "5.00")
}
