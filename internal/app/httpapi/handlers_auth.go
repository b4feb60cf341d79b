package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/auth"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/internal/httputil"
	"github.com/flockhq/flock/internal/middleware"
)

func (h *handler) registerAuth(api *mux.Router) {
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	h.route(api, http.MethodGet, "/users", user.PermUsersManage, h.listUsers)
	h.route(api, http.MethodPost, "/users", user.PermUsersManage, h.createUser)
	h.route(api, http.MethodPatch, "/users/{id}", user.PermUsersManage, h.updateUser)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Church   string `json:"church"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	token, err := h.app.Auth.Login(r.Context(), body.Church, body.Email, body.Password)
	respond(w, token, err)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}
	u, err := h.app.Auth.Me(r.Context(), p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.app.Tenants.Get(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "tenant": t})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Auth.ListUsers(r.Context())
	respond(w, users, err)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var body auth.NewUser
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	u, err := h.app.Auth.CreateUser(r.Context(), body)
	created(w, u, err)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role     *user.Role `json:"role"`
		Disabled *bool      `json:"disabled"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	if body.Role == nil && body.Disabled == nil {
		writeError(w, apperrors.Validation("role or disabled is required"))
		return
	}
	id := pathID(r)
	if p, _ := middleware.PrincipalFrom(r.Context()); p.UserID == id {
		writeError(w, apperrors.Conflict("admins cannot change their own role or status"))
		return
	}

	var (
		u   user.User
		err error
	)
	if body.Role != nil {
		if u, err = h.app.Auth.SetRole(r.Context(), id, *body.Role); err != nil {
			writeError(w, err)
			return
		}
	}
	if body.Disabled != nil {
		u, err = h.app.Auth.SetDisabled(r.Context(), id, *body.Disabled)
	}
	respond(w, u, err)
}

func (h *handler) registerPlatform(pr *mux.Router, token string) {
	pr.Use(func(next http.Handler) http.Handler { return middleware.StaticToken(token, next) })
	pr.HandleFunc("/plans", h.listPlans).Methods(http.MethodGet)
	pr.HandleFunc("/tenants", h.listTenants).Methods(http.MethodGet)
	pr.HandleFunc("/tenants", h.createTenant).Methods(http.MethodPost)
	pr.HandleFunc("/tenants/{id}/plan", h.changePlan).Methods(http.MethodPatch)
	pr.HandleFunc("/tenants/{id}/ai-override", h.setAIOverride).Methods(http.MethodPut)
	pr.HandleFunc("/tenants/{id}/ai-override", h.clearAIOverride).Methods(http.MethodDelete)
}

func (h *handler) listPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Plans.Tiers())
}

func (h *handler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.app.Tenants.List(r.Context())
	respond(w, tenants, err)
}

func (h *handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string    `json:"name"`
		Slug string    `json:"slug"`
		Plan plan.Tier `json:"plan"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	t, err := h.app.Tenants.Create(r.Context(), body.Name, body.Slug, body.Plan)
	created(w, t, err)
}

func (h *handler) changePlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plan plan.Tier `json:"plan"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	t, err := h.app.Tenants.ChangePlan(r.Context(), pathID(r), body.Plan)
	respond(w, t, err)
}

func (h *handler) setAIOverride(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool  `json:"enabled"`
		Quota   int64 `json:"quota"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	t, err := h.app.Tenants.SetAIOverride(r.Context(), pathID(r), body.Enabled, body.Quota)
	respond(w, t, err)
}

func (h *handler) clearAIOverride(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Tenants.ClearAIOverride(r.Context(), pathID(r))
	respond(w, t, err)
}
