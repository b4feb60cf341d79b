package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func TestSummary(t *testing.T) {
	store := memory.New()
	svc := New(store, store, logger.Discard())
	ctx := tenancy.WithTenant(context.Background(), "tenant-a")

	for _, c := range []attendance.Count{
		{ServiceDate: civil.MustParse("2024-03-03"), ServiceName: "9am", Headcount: 80},
		{ServiceDate: civil.MustParse("2024-03-03"), ServiceName: "11am", Headcount: 120},
		{ServiceDate: civil.MustParse("2024-03-10"), ServiceName: "9am", Headcount: 95},
		{ServiceDate: civil.MustParse("2024-03-10"), ServiceName: "9am", Headcount: 100},
		{ServiceDate: civil.MustParse("2024-04-07"), ServiceName: "9am", Headcount: 500},
	} {
		_, err := svc.RecordCount(ctx, c)
		require.NoError(t, err)
	}

	p1, err := store.CreatePerson(ctx, person.Person{FirstName: "A", LastName: "A"})
	require.NoError(t, err)
	p2, err := store.CreatePerson(ctx, person.Person{FirstName: "B", LastName: "B"})
	require.NoError(t, err)

	_, created, err := svc.CheckIn(ctx, p1.ID, civil.MustParse("2024-03-03"), "9am")
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = svc.CheckIn(ctx, p1.ID, civil.MustParse("2024-03-03"), "9am")
	require.NoError(t, err)
	assert.False(t, created, "second check-in is idempotent")
	_, _, err = svc.CheckIn(ctx, p1.ID, civil.MustParse("2024-03-10"), "9am")
	require.NoError(t, err)
	_, _, err = svc.CheckIn(ctx, p2.ID, civil.MustParse("2024-03-10"), "9am")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, civil.MustParse("2024-03-01"), civil.MustParse("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Services)
	assert.Equal(t, 300, sum.TotalHeadcount)
	assert.Equal(t, 100.0, sum.Average)
	assert.Equal(t, 120, sum.Peak)
	assert.Equal(t, "2024-03-03", sum.PeakDate.String())
	assert.Equal(t, 2, sum.UniquePeople)
}

func TestValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, logger.Discard())
	ctx := tenancy.WithTenant(context.Background(), "tenant-a")

	_, err := svc.RecordCount(ctx, attendance.Count{ServiceDate: civil.MustParse("2024-03-03"), ServiceName: "9am", Headcount: -1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = svc.RecordCount(ctx, attendance.Count{ServiceName: "9am"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, _, err = svc.CheckIn(ctx, "ghost", civil.MustParse("2024-03-03"), "9am")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.Summary(ctx, civil.MustParse("2024-03-31"), civil.MustParse("2024-03-01"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSummarizeEmpty(t *testing.T) {
	sum := summarize(civil.MustParse("2024-01-01"), civil.MustParse("2024-01-31"), nil, 0)
	assert.Zero(t, sum.Average)
	assert.True(t, sum.PeakDate.IsZero())
}
