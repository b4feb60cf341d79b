package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/flockhq/flock/internal/app"
	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/pkg/logger"
)

const platformToken = "platform-secret"

type fixture struct {
	handler http.Handler
	app     *app.Application
	tokens  map[user.Role]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	stores := app.Stores{
		Tenants: store, Users: store, People: store, Bulletins: store, Sermons: store,
		Attendance: store, Prayer: store, Donations: store, Settings: store, Usage: store, Audit: store,
	}
	application, err := app.New(stores, app.Options{
		Auth: auth.Config{Secret: []byte("0123456789abcdef0123456789abcdef"), Issuer: "flock", TokenTTL: time.Hour, BcryptCost: 4},
	}, logger.Discard())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	ctx := context.Background()
	tn, err := application.Tenants.Create(ctx, "Grace Chapel", "grace", plan.TierStarter)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	tctx := tenancy.WithTenant(ctx, tn.ID)

	f := &fixture{
		app:    application,
		tokens: make(map[user.Role]string),
		handler: NewHandler(application, Options{
			PlatformToken: platformToken,
			Audit:         NewAuditLog(50, logger.Discard(), NewStoreAuditSink(store)),
		}, logger.Discard()),
	}
	for _, role := range []user.Role{user.RoleAdmin, user.RolePastor, user.RoleFinance, user.RoleVolunteer} {
		email := string(role) + "@grace.org"
		if _, err := application.Auth.CreateUser(tctx, auth.NewUser{Email: email, Name: string(role), Role: role, Password: "a long password"}); err != nil {
			t.Fatalf("create %s: %v", role, err)
		}
		resp := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
			"church": "grace", "email": email, "password": "a long password",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("login %s: %d %s", role, resp.Code, resp.Body.String())
		}
		var tok auth.Token
		decode(t, resp, &tok)
		f.tokens[role] = tok.Token
	}
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"church": "grace", "email": "admin@grace.org", "password": "wrong password"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = f.do(t, http.MethodGet, "/api/v1/me", f.tokens[user.RolePastor], nil)
	expectStatus(t, rec, http.StatusOK)
	var me struct {
		User   user.User `json:"user"`
		Tenant struct {
			Slug string `json:"slug"`
		} `json:"tenant"`
	}
	decode(t, rec, &me)
	if me.User.Role != user.RolePastor || me.Tenant.Slug != "grace" {
		t.Fatalf("me = %+v", me)
	}

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/me", "", nil), http.StatusUnauthorized)
}

func TestPeopleAndPermissions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/people", f.tokens[user.RolePastor], map[string]any{
		"first_name": "Ruth", "last_name": "Moab", "birthday": "1990-03-14", "status": "member",
	})
	expectStatus(t, rec, http.StatusCreated)
	var ruth struct {
		ID string `json:"id"`
	}
	decode(t, rec, &ruth)

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/people", f.tokens[user.RoleVolunteer], map[string]any{"first_name": "X", "last_name": "Y"}), http.StatusForbidden)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/people/"+ruth.ID, f.tokens[user.RoleVolunteer], nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/people/missing", f.tokens[user.RoleVolunteer], nil), http.StatusNotFound)

	rec = f.do(t, http.MethodGet, "/api/v1/people/birthdays?month=3", f.tokens[user.RoleVolunteer], nil)
	expectStatus(t, rec, http.StatusOK)
	var bdays []map[string]any
	decode(t, rec, &bdays)
	if len(bdays) != 1 {
		t.Fatalf("birthdays = %v", bdays)
	}

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/people/birthdays?month=13", f.tokens[user.RoleVolunteer], nil), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/donations", f.tokens[user.RolePastor], nil), http.StatusForbidden)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/donations", f.tokens[user.RoleFinance], nil), http.StatusOK)
}

func TestBulletinPublishAndRender(t *testing.T) {
	f := newFixture(t)
	token := f.tokens[user.RolePastor]

	rec := f.do(t, http.MethodPost, "/api/v1/bulletins", token, map[string]any{
		"service_date": "2024-03-03",
		"title":        "Lord's Day Worship",
		"items":        []map[string]any{{"kind": "hymn", "title": "Be Thou My Vision"}},
	})
	expectStatus(t, rec, http.StatusCreated)
	var b struct {
		ID string `json:"id"`
	}
	decode(t, rec, &b)

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/bulletins/"+b.ID+"/publish", token, nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/bulletins/"+b.ID, token, nil), http.StatusConflict)

	rec = f.do(t, http.MethodGet, "/api/v1/bulletins/"+b.ID+"/view", f.tokens[user.RoleVolunteer], nil)
	expectStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodGet, "/api/v1/bulletins/"+b.ID+"/render?format=pdf&mode=booklet", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatalf("expected a PDF body")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first render should miss the cache")
	}
	rec = f.do(t, http.MethodGet, "/api/v1/bulletins/"+b.ID+"/render?format=pdf&mode=booklet", token, nil)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second render should hit the cache")
	}

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/bulletins/"+b.ID+"/render?format=docx", token, nil), http.StatusBadRequest)
}

func TestSermonHelperAndDashboard(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/sermon-helper/suggest", f.tokens[user.RolePastor], map[string]any{"topic": "hope in suffering"})
	expectStatus(t, rec, http.StatusOK)
	var res struct {
		Outline []string `json:"outline"`
		Quota   struct {
			Used int64 `json:"used"`
		} `json:"quota"`
	}
	decode(t, rec, &res)
	if len(res.Outline) == 0 || res.Quota.Used == 0 {
		t.Fatalf("suggest result = %+v", res)
	}
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/sermon-helper/suggest", f.tokens[user.RoleVolunteer], map[string]any{"topic": "hope"}), http.StatusForbidden)

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/donations", f.tokens[user.RoleFinance], map[string]any{
		"amount_cents": 5000, "fund": "general", "method": "check",
	}), http.StatusCreated)

	rec = f.do(t, http.MethodGet, "/api/v1/dashboard", f.tokens[user.RoleFinance], nil)
	expectStatus(t, rec, http.StatusOK)
	var dash map[string]any
	decode(t, rec, &dash)
	if _, ok := dash["giving_month_to_date"]; !ok {
		t.Fatalf("finance dashboard should include giving: %v", dash)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/dashboard", f.tokens[user.RoleVolunteer], nil)
	dash = nil
	decode(t, rec, &dash)
	if _, ok := dash["giving_month_to_date"]; ok {
		t.Fatalf("volunteer dashboard must not include giving")
	}
}

func TestPlatformRoutes(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/platform/tenants", f.tokens[user.RoleAdmin], nil), http.StatusUnauthorized)

	rec := f.do(t, http.MethodPost, "/api/v1/platform/tenants", platformToken, map[string]any{"name": "Hope Church", "slug": "hope", "plan": "core"})
	expectStatus(t, rec, http.StatusCreated)
	var tn struct {
		ID        string `json:"id"`
		AIEnabled bool   `json:"ai_enabled"`
	}
	decode(t, rec, &tn)
	if tn.AIEnabled {
		t.Fatalf("core plan should not enable AI")
	}

	rec = f.do(t, http.MethodPatch, "/api/v1/platform/tenants/"+tn.ID+"/plan", platformToken, map[string]any{"plan": "plus"})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &tn)
	if !tn.AIEnabled {
		t.Fatalf("plus plan should enable AI")
	}

	expectStatus(t, f.do(t, http.MethodPut, "/api/v1/platform/tenants/"+tn.ID+"/ai-override", platformToken, map[string]any{"enabled": true, "quota": 5}), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/platform/tenants/"+tn.ID+"/ai-override", platformToken, nil), http.StatusOK)
}

func TestAuditAndInfrastructureRoutes(t *testing.T) {
	f := newFixture(t)
	admin := f.tokens[user.RoleAdmin]

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/settings", admin, nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPut, "/api/v1/settings/branding", admin, map[string]any{"church_name": "Grace Chapel", "primary_color": "#112233"}), http.StatusOK)

	rec := f.do(t, http.MethodGet, "/api/v1/audit", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	var entries []struct {
		Path   string `json:"path"`
		Status int    `json:"status"`
	}
	decode(t, rec, &entries)
	if len(entries) < 2 || entries[0].Path != "/api/v1/settings/branding" {
		t.Fatalf("audit entries = %+v", entries)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/audit?source=store&limit=5", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/audit", f.tokens[user.RolePastor], nil), http.StatusForbidden)

	expectStatus(t, f.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/metrics", "", nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/nowhere", admin, nil), http.StatusNotFound)

	rec = f.do(t, http.MethodPost, "/api/v1/people", admin, map[string]any{"first_name": "A", "last_name": "B", "shoe_size": 11})
	expectStatus(t, rec, http.StatusBadRequest)
}
