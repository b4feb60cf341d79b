package people

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func newService() (*Service, context.Context) {
	return New(memory.New(), logger.Discard()), tenancy.WithTenant(context.Background(), "tenant-a")
}

func TestCreateNormalizes(t *testing.T) {
	svc, ctx := newService()
	p, err := svc.Create(ctx, person.Person{
		FirstName: " Ruth ",
		LastName:  "Moab",
		Email:     "Ruth@Example.ORG",
		Tags:      []string{"Choir", "choir", " ", "ushers"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ruth", p.FirstName)
	assert.Equal(t, "ruth@example.org", p.Email)
	assert.Equal(t, person.StatusVisitor, p.Status)
	assert.Equal(t, []string{"choir", "ushers"}, p.Tags)
}

func TestCreateValidation(t *testing.T) {
	svc, ctx := newService()
	for _, p := range []person.Person{
		{FirstName: "", LastName: "X"},
		{FirstName: "X", LastName: "Y", Email: "not-an-email"},
		{FirstName: "X", LastName: "Y", Status: "saint"},
	} {
		_, err := svc.Create(ctx, p)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "%+v: %v", p, err)
	}
}

func TestListAndBirthdays(t *testing.T) {
	svc, ctx := newService()
	seed := []person.Person{
		{FirstName: "Anna", LastName: "Prophet", Status: person.StatusMember, Birthday: civil.MustParse("1950-03-20")},
		{FirstName: "Simeon", LastName: "Elder", Status: person.StatusMember, Birthday: civil.MustParse("1940-03-02")},
		{FirstName: "Lydia", LastName: "Seller", Status: person.StatusRegular, Email: "lydia@purple.example", Birthday: civil.MustParse("1980-07-11")},
		{FirstName: "Demas", LastName: "Gone", Status: person.StatusInactive, Birthday: civil.MustParse("1970-03-05")},
	}
	for _, p := range seed {
		_, err := svc.Create(ctx, p)
		require.NoError(t, err)
	}

	members, err := svc.List(ctx, person.Filter{Status: person.StatusMember})
	require.NoError(t, err)
	assert.Len(t, members, 2)

	found, err := svc.List(ctx, person.Filter{Query: "PURPLE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Lydia", found[0].FirstName)

	march, err := svc.Birthdays(ctx, time.March)
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, "Simeon", march[0].FirstName)
	assert.Equal(t, "Anna", march[1].FirstName)

	_, err = svc.Birthdays(ctx, 13)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestTenantIsolation(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Discard())
	a := tenancy.WithTenant(context.Background(), "tenant-a")
	b := tenancy.WithTenant(context.Background(), "tenant-b")

	p, err := svc.Create(a, person.Person{FirstName: "A", LastName: "A"})
	require.NoError(t, err)

	_, err = svc.Get(b, p.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(svc.Delete(b, p.ID), apperrors.CodeNotFound))

	_, err = svc.List(context.Background(), person.Filter{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}
