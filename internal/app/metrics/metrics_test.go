package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/api/v1/people", "/api/v1/people"},
		{"/api/v1/people/7d0b7c1e-8f1a-4f57-9a63-2d4f3c1b9e01", "/api/v1/people/:id"},
		{"/api/v1/bulletins/7d0b7c1e-8f1a-4f57-9a63-2d4f3c1b9e01/render", "/api/v1/bulletins/:id/render"},
		{"/api/v1/donations/statements/42", "/api/v1/donations/statements/:id"},
	}
	for _, tt := range tests {
		if got := canonicalPath(tt.in); got != tt.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstrumentHandlerExposesMetrics(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/sermons", nil))
	RecordJobRun("prayer-expiry", time.Second, true)
	RecordSermonHelper("ok", 700)
	RecordBulletinRender("pdf", "screen", false, 0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`flock_http_requests_total{method="GET",path="/api/v1/sermons",status="418"}`,
		`flock_jobs_runs_total{job="prayer-expiry",success="true"}`,
		`flock_sermon_helper_tokens_consumed_total`,
		`flock_bulletins_renders_total{cache="miss",format="pdf",mode="screen"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
