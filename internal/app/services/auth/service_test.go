package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func setup(t *testing.T, tier plan.Tier) (*Service, context.Context) {
	t.Helper()
	store := memory.New()
	tn, err := store.CreateTenant(context.Background(), tenant.Tenant{Name: "Grace", Slug: "grace", Plan: string(tier)})
	require.NoError(t, err)
	svc := New(Config{Secret: testSecret, Issuer: "flock", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost},
		store, store, plans.New(nil, store, logger.Discard()), logger.Discard())
	return svc, tenancy.WithTenant(context.Background(), tn.ID)
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, ctx := setup(t, plan.TierStarter)

	u, err := svc.CreateUser(ctx, NewUser{Email: " Pastor@Grace.org ", Name: "Pat", Role: user.RolePastor, Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "pastor@grace.org", u.Email)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	tok, err := svc.Login(context.Background(), "GRACE", "pastor@grace.org", "correct horse")
	require.NoError(t, err)
	assert.NotNil(t, tok.User.LastLoginAt)

	claims, err := svc.ParseToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.TenantID, claims.TenantID)
	assert.Equal(t, "pastor", claims.Role)
}

func TestCreateUserValidation(t *testing.T) {
	svc, ctx := setup(t, plan.TierStarter)
	cases := []NewUser{
		{Email: "nope", Name: "A", Role: user.RoleStaff, Password: "long enough pw"},
		{Email: "a@b.org", Name: "", Role: user.RoleStaff, Password: "long enough pw"},
		{Email: "a@b.org", Name: "A", Role: "bishop", Password: "long enough pw"},
		{Email: "a@b.org", Name: "A", Role: user.RoleStaff, Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.CreateUser(ctx, in)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "%+v: %v", in, err)
	}

	_, err := svc.CreateUser(context.Background(), NewUser{Email: "a@b.org", Name: "A", Role: user.RoleStaff, Password: "long enough pw"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "missing tenant: %v", err)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, ctx := setup(t, plan.TierStarter)
	in := NewUser{Email: "a@b.org", Name: "A", Role: user.RoleStaff, Password: "long enough pw"}
	_, err := svc.CreateUser(ctx, in)
	require.NoError(t, err)
	in.Email = "A@B.org"
	_, err = svc.CreateUser(ctx, in)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "%v", err)
}

func TestCreateUserSeatLimit(t *testing.T) {
	svc, ctx := setup(t, plan.TierCore)
	for i, email := range []string{"a@b.org", "b@b.org", "c@b.org"} {
		_, err := svc.CreateUser(ctx, NewUser{Email: email, Name: "U", Role: user.RoleStaff, Password: "long enough pw"})
		require.NoError(t, err, "user %d", i)
	}
	_, err := svc.CreateUser(ctx, NewUser{Email: "d@b.org", Name: "U", Role: user.RoleStaff, Password: "long enough pw"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "%v", err)
}

func TestCreateUserSeatLimitUnderConcurrency(t *testing.T) {
	svc, ctx := setup(t, plan.TierCore)
	const attempts = 12

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateUser(ctx, NewUser{
				Email: fmt.Sprintf("u%d@b.org", i), Name: "U", Role: user.RoleStaff, Password: "long enough pw",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "%v", err)
	}
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Len(t, users, 3)
}

// racingUsers applies an admin change right after Login has read the user.
type racingUsers struct {
	*memory.Store
	afterRead func(u user.User)
}

func (r *racingUsers) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := r.Store.GetUserByEmail(ctx, email)
	if err == nil && r.afterRead != nil {
		r.afterRead(u)
	}
	return u, err
}

func TestLoginKeepsConcurrentAdminChanges(t *testing.T) {
	store := memory.New()
	tn, err := store.CreateTenant(context.Background(), tenant.Tenant{Name: "Grace", Slug: "grace", Plan: string(plan.TierStarter)})
	require.NoError(t, err)
	users := &racingUsers{Store: store}
	svc := New(Config{Secret: testSecret, Issuer: "flock", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost},
		store, users, plans.New(nil, store, logger.Discard()), logger.Discard())
	ctx := tenancy.WithTenant(context.Background(), tn.ID)

	u, err := svc.CreateUser(ctx, NewUser{Email: "a@b.org", Name: "A", Role: user.RoleAdmin, Password: "long enough pw"})
	require.NoError(t, err)

	users.afterRead = func(read user.User) {
		users.afterRead = nil
		_, err := store.SetUserDisabled(ctx, read.ID, true)
		require.NoError(t, err)
		_, err = store.SetUserRole(ctx, read.ID, user.RoleVolunteer)
		require.NoError(t, err)
	}
	_, err = svc.Login(context.Background(), "grace", "a@b.org", "long enough pw")
	require.NoError(t, err)

	stored, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Disabled, "login must not re-enable a user disabled meanwhile")
	assert.Equal(t, user.RoleVolunteer, stored.Role)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(context.Background(), "grace", "a@b.org", "long enough pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "%v", err)
}

func TestLoginFailuresShareMessage(t *testing.T) {
	svc, ctx := setup(t, plan.TierStarter)
	u, err := svc.CreateUser(ctx, NewUser{Email: "a@b.org", Name: "A", Role: user.RoleStaff, Password: "long enough pw"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(context.Background(), "grace", "a@b.org", "wrong password")
	_, unknownEmail := svc.Login(context.Background(), "grace", "x@b.org", "long enough pw")
	_, unknownTenant := svc.Login(context.Background(), "other", "a@b.org", "long enough pw")

	_, err = svc.Disable(ctx, u.ID)
	require.NoError(t, err)
	_, disabled := svc.Login(context.Background(), "grace", "a@b.org", "long enough pw")

	for _, err := range []error{wrongPassword, unknownEmail, unknownTenant, disabled} {
		require.Error(t, err)
		se := apperrors.GetServiceError(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.CodeUnauthorized, se.Code)
		assert.Equal(t, badCredentials, se.Message)
	}
}

func TestParseTokenRejects(t *testing.T) {
	svc, _ := setup(t, plan.TierStarter)
	u := user.User{ID: "u1", TenantID: "t1", Role: user.RoleAdmin}

	signed, _, err := svc.IssueToken(u)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ParseToken(signed)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken), "expired: %v", err)
	svc.now = time.Now

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1", TenantID: "t1", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "flock", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	forged, err := other.SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken), "wrong key: %v", err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1", TenantID: "t1", Role: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseToken(unsigned)
	assert.Error(t, err)
}

func TestSetRole(t *testing.T) {
	svc, ctx := setup(t, plan.TierStarter)
	u, err := svc.CreateUser(ctx, NewUser{Email: "a@b.org", Name: "A", Role: user.RoleVolunteer, Password: "long enough pw"})
	require.NoError(t, err)

	updated, err := svc.SetRole(ctx, u.ID, user.RoleFinance)
	require.NoError(t, err)
	assert.Equal(t, user.RoleFinance, updated.Role)

	_, err = svc.SetRole(ctx, u.ID, "bishop")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = svc.SetRole(ctx, "missing", user.RoleStaff)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
