package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/sermonhelper"
	settingssvc "github.com/flockhq/flock/internal/app/services/settings"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerSettings(api *mux.Router) {
	h.route(api, http.MethodGet, "/settings", user.PermSettingsRead, h.getSettings)
	h.route(api, http.MethodPut, "/settings/branding", user.PermSettingsWrite, h.updateBranding)
	h.route(api, http.MethodPut, "/settings/theology", user.PermSettingsWrite, h.updateTheology)
	h.route(api, http.MethodPut, "/settings/general", user.PermSettingsWrite, h.updateGeneral)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Settings.Get(r.Context())
	respond(w, st, err)
}

func (h *handler) updateBranding(w http.ResponseWriter, r *http.Request) {
	var body settings.Branding
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	st, err := h.app.Settings.UpdateBranding(r.Context(), body)
	respond(w, st, err)
}

func (h *handler) updateTheology(w http.ResponseWriter, r *http.Request) {
	var body settings.TheologyProfile
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	st, err := h.app.Settings.UpdateTheology(r.Context(), body)
	respond(w, st, err)
}

func (h *handler) updateGeneral(w http.ResponseWriter, r *http.Request) {
	var body settingssvc.General
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	st, err := h.app.Settings.UpdateGeneral(r.Context(), body)
	respond(w, st, err)
}

func (h *handler) registerSermonHelper(api *mux.Router) {
	h.route(api, http.MethodPost, "/sermon-helper/suggest", user.PermSermonHelperUse, h.suggest)
	h.route(api, http.MethodGet, "/sermon-helper/quota", user.PermSermonHelperUse, h.helperQuota)
}

func (h *handler) suggest(w http.ResponseWriter, r *http.Request) {
	var body sermonhelper.Request
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	res, err := h.app.SermonHelper.Suggest(r.Context(), body)
	respond(w, res, err)
}

func (h *handler) helperQuota(w http.ResponseWriter, r *http.Request) {
	q, err := h.app.SermonHelper.Quota(r.Context())
	respond(w, q, err)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.app.Dashboard.Summary(r.Context(), callerRole(r))
	respond(w, sum, err)
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100, 1, 1000)
	if err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalOf(r)
	if r.URL.Query().Get("source") == "store" {
		entries, err := h.app.Stores.Audit.ListAudit(r.Context(), limit)
		respond(w, entries, err)
		return
	}
	writeJSON(w, http.StatusOK, h.audit.List(p.TenantID, limit))
}
