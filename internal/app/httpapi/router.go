// Package httpapi exposes the application over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/flockhq/flock/internal/app"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/metrics"
	"github.com/flockhq/flock/internal/httputil"
	"github.com/flockhq/flock/internal/middleware"
	"github.com/flockhq/flock/pkg/logger"
)

const apiPrefix = "/api/v1"

// Options configures the HTTP surface.
type Options struct {
	// PlatformToken guards /platform; empty disables those routes.
	PlatformToken  string
	AllowedOrigins []string
	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter
	Audit       *AuditLog
	// Ready backs /readyz, typically a database ping.
	Ready func(ctx context.Context) error
}

type handler struct {
	app   *app.Application
	audit *AuditLog
	log   *logger.Logger
}

// NewHandler builds the router and wraps it in the middleware chain:
// tracing, CORS, metrics, auth, rate limit, audit.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if opts.Audit == nil {
		opts.Audit = NewAuditLog(0, log)
	}
	h := &handler{app: application, audit: opts.Audit, log: log}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				log.WithError(err).Warn("readiness check failed")
				httputil.WriteErrorResponse(w, http.StatusServiceUnavailable, "unavailable", "not ready", nil)
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix(apiPrefix).Subrouter()
	h.registerAuth(api)
	h.registerPlatform(api.PathPrefix("/platform").Subrouter(), opts.PlatformToken)
	h.registerPeople(api)
	h.registerBulletins(api)
	h.registerSermons(api)
	h.registerAttendance(api)
	h.registerPrayer(api)
	h.registerDonations(api)
	h.registerSettings(api)
	h.registerSermonHelper(api)
	h.route(api, http.MethodGet, "/dashboard", user.PermDashboardRead, h.dashboard)
	h.route(api, http.MethodGet, "/audit", user.PermAuditRead, h.listAudit)

	var chain http.Handler = opts.Audit.Middleware(r)
	if opts.RateLimiter != nil {
		chain = opts.RateLimiter.Handler(chain)
	}
	chain = middleware.NewAuthMiddleware(application.Auth, application.Stores.Users, log, isPublic).Handler(chain)
	chain = metrics.InstrumentHandler(chain)
	chain = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(chain)
	return middleware.NewTracingMiddleware(log).Handler(chain)
}

// isPublic reports routes reachable without a user token.
func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics", apiPrefix + "/auth/login":
		return true
	}
	return strings.HasPrefix(r.URL.Path, apiPrefix+"/platform/")
}

func (h *handler) route(r *mux.Router, method, path string, perm user.Permission, fn http.HandlerFunc) {
	r.Handle(path, middleware.Require(perm, fn)).Methods(method)
}
