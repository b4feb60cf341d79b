package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/pkg/logger"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newAuthService(ttl time.Duration, secret []byte) *auth.Service {
	return auth.New(auth.Config{Secret: secret, Issuer: "flock", TokenTTL: ttl, BcryptCost: 4}, nil, nil, nil, logger.Discard())
}

func issue(t *testing.T, svc *auth.Service, u user.User) string {
	t.Helper()
	token, _, err := svc.IssueToken(u)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

type fakeUsers map[string]user.User

func (f fakeUsers) GetUser(_ context.Context, id string) (user.User, error) {
	u, ok := f[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

var (
	pastor          = user.User{ID: "u-1", TenantID: "t-1", Role: user.RolePastor}
	pastorPrincipal = Principal{UserID: "u-1", TenantID: "t-1", Role: user.RolePastor}
)

func okHandler(captured *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured, _ = PrincipalFrom(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Handler(t *testing.T) {
	svc := newAuthService(time.Hour, testSecret)
	valid := issue(t, svc, pastor)
	expired := issue(t, newAuthService(-time.Hour, testSecret), pastor)
	forged := issue(t, newAuthService(time.Hour, []byte("another-secret-another-secret-xx")), pastor)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{"public path", "/api/v1/auth/login", "", http.StatusOK},
		{"missing header", "/api/v1/people", "", http.StatusUnauthorized},
		{"bad scheme", "/api/v1/people", "Basic abc", http.StatusUnauthorized},
		{"valid token", "/api/v1/people", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "/api/v1/people", "bearer " + valid, http.StatusOK},
		{"expired token", "/api/v1/people", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "/api/v1/people", "Bearer " + forged, http.StatusUnauthorized},
		{"garbage", "/api/v1/people", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	public := func(r *http.Request) bool { return r.URL.Path == "/api/v1/auth/login" }
	handler := NewAuthMiddleware(svc, nil, logger.Discard(), public).Handler(okHandler(nil))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_SetsPrincipalAndTenant(t *testing.T) {
	svc := newAuthService(time.Hour, testSecret)
	var got Principal
	var tenantID string
	handler := NewAuthMiddleware(svc, nil, logger.Discard(), nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
		tenantID, _ = tenancy.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, svc, pastor))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != "u-1" || got.Role != user.RolePastor {
		t.Errorf("principal = %+v", got)
	}
	if tenantID != "t-1" {
		t.Errorf("tenant = %q, want t-1", tenantID)
	}
}

func TestAuthMiddleware_UserLookup(t *testing.T) {
	svc := newAuthService(time.Hour, testSecret)
	token := issue(t, svc, pastor)

	demoted := pastor
	demoted.Role = user.RoleVolunteer
	disabled := pastor
	disabled.Disabled = true

	tests := []struct {
		name       string
		users      fakeUsers
		wantStatus int
		wantRole   user.Role
	}{
		{"stored role wins", fakeUsers{"u-1": demoted}, http.StatusOK, user.RoleVolunteer},
		{"disabled", fakeUsers{"u-1": disabled}, http.StatusUnauthorized, ""},
		{"deleted", fakeUsers{}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Principal
			handler := NewAuthMiddleware(svc, tt.users, logger.Discard(), nil).Handler(okHandler(&got))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got.Role != tt.wantRole {
				t.Errorf("role = %q, want %q", got.Role, tt.wantRole)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	handler := Require(user.PermDonationsRead, okHandler(nil))

	tests := []struct {
		name       string
		ctx        context.Context
		wantStatus int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"pastor", WithPrincipal(context.Background(), pastorPrincipal), http.StatusForbidden},
		{"finance", WithPrincipal(context.Background(), Principal{UserID: "u-2", TenantID: "t-1", Role: user.RoleFinance}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil).WithContext(tt.ctx)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestStaticToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"disabled", "", "Bearer anything", http.StatusForbidden},
		{"missing", "platform-secret", "", http.StatusUnauthorized},
		{"wrong", "platform-secret", "Bearer nope", http.StatusUnauthorized},
		{"match", "platform-secret", "Bearer platform-secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/platform/tenants", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			StaticToken(tt.configured, okHandler(nil)).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestTracingMiddleware(t *testing.T) {
	var seen string
	handler := NewTracingMiddleware(logger.Discard()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.TraceID(r.Context())
		annotate(r.Context(), pastorPrincipal)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/people", nil)
	req.Header.Set("X-Trace-ID", "trace-456")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "trace-456" || rec.Header().Get("X-Trace-ID") != "trace-456" {
		t.Errorf("trace id not propagated: ctx=%q header=%q", seen, rec.Header().Get("X-Trace-ID"))
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("trace id not generated")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://grace.example/"}).Handler(okHandler(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/people", nil)
	req.Header.Set("Origin", "https://grace.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://grace.example" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
	req.Header.Set("Origin", "https://evilgrace.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.Discard())
	handler := rl.Handler(okHandler(nil))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client limited: %d", rec.Code)
	}

	rl.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := rl.Cleanup(); n != 2 {
		t.Errorf("Cleanup() = %d, want 2", n)
	}
	if !strings.HasPrefix(clientKey(req), "ip:10.0.0.2") {
		t.Errorf("clientKey = %q", clientKey(req))
	}
}

func TestRateLimiterLifecycle(t *testing.T) {
	rl := NewRateLimiter(5, 5, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}
