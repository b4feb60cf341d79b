// Package middleware holds the HTTP middleware chain: tracing and request
// logging, CORS, rate limiting and JWT authentication.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/internal/httputil"
	"github.com/flockhq/flock/pkg/logger"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID   string
	TenantID string
	Role     user.Role
}

type principalKey struct{}

// WithPrincipal stores p on ctx along with its tenant scope.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return tenancy.WithTenant(ctx, p.TenantID)
}

// PrincipalFrom returns the caller stored on ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// TokenParser validates bearer tokens. *auth.Service satisfies it.
type TokenParser interface {
	ParseToken(raw string) (*auth.Claims, error)
}

// UserLookup loads a user for the tenant on ctx.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (user.User, error)
}

// AuthMiddleware authenticates requests with HS256 bearer tokens.
type AuthMiddleware struct {
	tokens TokenParser
	users  UserLookup
	log    *logger.Logger
	public func(*http.Request) bool
}

// NewAuthMiddleware builds the middleware. users is optional; when set,
// disabled or deleted accounts are rejected even with a valid token. public
// reports requests that skip authentication.
func NewAuthMiddleware(tokens TokenParser, users UserLookup, log *logger.Logger, public func(*http.Request) bool) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if public == nil {
		public = func(*http.Request) bool { return false }
	}
	return &AuthMiddleware{tokens: tokens, users: users, log: log, public: public}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.public(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := bearerToken(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}
		claims, err := m.tokens.ParseToken(raw)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		p := Principal{UserID: claims.UserID, TenantID: claims.TenantID, Role: user.Role(claims.Role)}
		ctx := WithPrincipal(r.Context(), p)
		if m.users != nil {
			u, err := m.users.GetUser(ctx, p.UserID)
			if err != nil || u.Disabled {
				m.respondError(w, r, apperrors.Unauthorized("account is not active"))
				return
			}
			// The stored role wins over a stale token.
			p.Role = u.Role
			ctx = WithPrincipal(r.Context(), p)
		}
		annotate(ctx, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.Unauthorized("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.Unauthorized("invalid Authorization header format")
	}
	return strings.TrimSpace(token), nil
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, err)
	m.log.Ctx(r.Context()).
		WithError(err).
		WithField("path", r.URL.Path).
		WithField("method", r.Method).
		Warn("authentication failed")
}

// Require rejects callers whose role lacks perm.
func Require(perm user.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			httputil.WriteError(w, apperrors.Unauthorized("authentication required"))
			return
		}
		if !p.Role.Can(perm) {
			httputil.WriteError(w, apperrors.Forbidden("role "+string(p.Role)+" may not "+string(perm)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StaticToken guards a handler with a shared bearer token. An empty token
// disables the handler entirely.
func StaticToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			httputil.WriteError(w, apperrors.Forbidden("platform administration is disabled"))
			return
		}
		raw, err := bearerToken(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if !constantTimeEqual(raw, token) {
			httputil.WriteError(w, apperrors.Unauthorized("invalid platform token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
