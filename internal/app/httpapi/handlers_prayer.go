package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/prayer"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerPrayer(api *mux.Router) {
	h.route(api, http.MethodGet, "/prayer", user.PermPrayerRead, h.listPrayer)
	h.route(api, http.MethodPost, "/prayer", user.PermPrayerRead, h.submitPrayer)
	h.route(api, http.MethodGet, "/prayer/{id}", user.PermPrayerRead, h.getPrayer)
	h.route(api, http.MethodPost, "/prayer/{id}/answer", user.PermPrayerManage, h.answerPrayer)
	h.route(api, http.MethodPost, "/prayer/{id}/archive", user.PermPrayerManage, h.archivePrayer)
}

func (h *handler) listPrayer(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Prayer.List(r.Context(), callerRole(r), prayer.Status(r.URL.Query().Get("status")))
	respond(w, list, err)
}

func (h *handler) submitPrayer(w http.ResponseWriter, r *http.Request) {
	var body prayer.Request
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	req, err := h.app.Prayer.Submit(r.Context(), body)
	created(w, req, err)
}

func (h *handler) getPrayer(w http.ResponseWriter, r *http.Request) {
	req, err := h.app.Prayer.Get(r.Context(), callerRole(r), pathID(r))
	respond(w, req, err)
}

func (h *handler) answerPrayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	if r.ContentLength != 0 && !httputil.DecodeJSON(w, r, &body) {
		return
	}
	req, err := h.app.Prayer.MarkAnswered(r.Context(), pathID(r), body.Note)
	respond(w, req, err)
}

func (h *handler) archivePrayer(w http.ResponseWriter, r *http.Request) {
	req, err := h.app.Prayer.Archive(r.Context(), pathID(r))
	respond(w, req, err)
}
