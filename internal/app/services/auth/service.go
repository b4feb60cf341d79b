// Package auth manages church logins and issues the bearer tokens checked by
// the HTTP middleware.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// MinPasswordLength is the shortest password accepted by CreateUser.
const MinPasswordLength = 10

const badCredentials = "invalid email or password"

// Claims are the JWT claims carried by every API token.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Config controls token signing and password hashing.
type Config struct {
	Secret     []byte
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Token is the result of a successful login.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      user.User `json:"user"`
}

// NewUser describes a login to create.
type NewUser struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     user.Role `json:"role"`
	Password string    `json:"password"`
}

// Service authenticates users and manages the tenant's logins.
type Service struct {
	cfg     Config
	tenants storage.TenantStore
	users   storage.UserStore
	plans   *plans.Service
	log     *logger.Logger
	now     func() time.Time

	// compared against when the email is unknown so both paths cost a hash
	dummyHash []byte
}

// New constructs an auth service.
func New(cfg Config, tenants storage.TenantStore, users storage.UserStore, plans *plans.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("flock-dummy-password"), cfg.BcryptCost)
	return &Service{
		cfg:       cfg,
		tenants:   tenants,
		users:     users,
		plans:     plans,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// HashPassword hashes password with the given bcrypt cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser adds a login to the tenant on ctx.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (user.User, error) {
	tenantID, err := tenancy.Require(ctx)
	if err != nil {
		return user.User{}, err
	}
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return user.User{}, apperrors.Validation("a valid email is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return user.User{}, apperrors.Validation("name is required")
	}
	role, ok := user.ParseRole(string(in.Role))
	if !ok {
		return user.User{}, apperrors.Validationf("unknown role %q", in.Role)
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return user.User{}, apperrors.Validationf("password must be at least %d characters", MinPasswordLength)
	}
	p, err := s.tenantPlan(ctx, tenantID)
	if err != nil {
		return user.User{}, err
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return user.User{}, apperrors.Internal("create user", err)
	}
	created, err := s.users.CreateUser(ctx, user.User{
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}, p.MaxUsers)
	if errors.Is(err, storage.ErrLimitReached) {
		return user.User{}, apperrors.Forbidden(fmt.Sprintf("the %s plan allows %d users", p.DisplayName, p.MaxUsers)).
			WithDetails("max_users", p.MaxUsers)
	}
	if err != nil {
		return user.User{}, storage.Translate(err, "user", email)
	}
	s.log.WithField("tenant_id", tenantID).
		WithField("user_id", created.ID).
		WithField("role", created.Role).
		Info("user created")
	return created, nil
}

func (s *Service) tenantPlan(ctx context.Context, tenantID string) (plan.Plan, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return plan.Plan{}, storage.Translate(err, "tenant", tenantID)
	}
	return s.plans.Lookup(plan.Tier(t.Plan))
}

// Login verifies credentials for a user of the church identified by slug.
// Unknown tenants, unknown emails, disabled users and wrong passwords all
// produce the same error.
func (s *Service) Login(ctx context.Context, slug, email, password string) (Token, error) {
	t, err := s.tenants.GetTenantBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return Token{}, apperrors.Unauthorized(badCredentials)
		}
		return Token{}, err
	}
	ctx = tenancy.WithTenant(ctx, t.ID)

	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return Token{}, apperrors.Unauthorized(badCredentials)
		}
		return Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil || u.Disabled {
		s.log.WithField("tenant_id", t.ID).WithField("user_id", u.ID).Warn("login rejected")
		return Token{}, apperrors.Unauthorized(badCredentials)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err == nil {
		u.LastLoginAt = &now
	} else {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("record last login")
	}

	signed, exp, err := s.IssueToken(u)
	if err != nil {
		return Token{}, err
	}
	s.log.WithField("tenant_id", t.ID).WithField("user_id", u.ID).Info("login succeeded")
	return Token{Token: signed, ExpiresAt: exp, User: u}, nil
}

// IssueToken signs an HS256 token for u.
func (s *Service) IssueToken(u user.User) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.cfg.TokenTTL)
	claims := Claims{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, apperrors.Internal("sign token", err)
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}
	if !token.Valid || claims.UserID == "" || claims.TenantID == "" {
		return nil, apperrors.InvalidToken(nil)
	}
	if _, ok := user.ParseRole(claims.Role); !ok {
		return nil, apperrors.InvalidToken(nil).WithDetails("reason", "unknown role")
	}
	return claims, nil
}

// Me returns the user on ctx's tenant with the given id.
func (s *Service) Me(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	return u, storage.Translate(err, "user", userID)
}

// ListUsers returns the tenant's logins.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.users.ListUsers(ctx)
}

// SetRole changes a user's role.
func (s *Service) SetRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	parsed, ok := user.ParseRole(string(role))
	if !ok {
		return user.User{}, apperrors.Validationf("unknown role %q", role)
	}
	updated, err := s.users.SetUserRole(ctx, id, parsed)
	if err != nil {
		return user.User{}, storage.Translate(err, "user", id)
	}
	s.log.WithField("user_id", id).WithField("role", updated.Role).Info("user role changed")
	return updated, nil
}

// SetDisabled enables or disables a login. Disabled users cannot sign in.
func (s *Service) SetDisabled(ctx context.Context, id string, disabled bool) (user.User, error) {
	updated, err := s.users.SetUserDisabled(ctx, id, disabled)
	if err != nil {
		return user.User{}, storage.Translate(err, "user", id)
	}
	s.log.WithField("user_id", id).WithField("disabled", updated.Disabled).Info("user access changed")
	return updated, nil
}

// Disable blocks a user from signing in.
func (s *Service) Disable(ctx context.Context, id string) (user.User, error) {
	return s.SetDisabled(ctx, id, true)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
