package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/sermon"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerSermons(api *mux.Router) {
	h.route(api, http.MethodGet, "/sermons", user.PermSermonsRead, h.listSermons)
	h.route(api, http.MethodPost, "/sermons", user.PermSermonsWrite, h.createSermon)
	h.route(api, http.MethodGet, "/sermons/series", user.PermSermonsRead, h.sermonSeries)
	h.route(api, http.MethodGet, "/sermons/{id}", user.PermSermonsRead, h.getSermon)
	h.route(api, http.MethodPut, "/sermons/{id}", user.PermSermonsWrite, h.updateSermon)
	h.route(api, http.MethodDelete, "/sermons/{id}", user.PermSermonsWrite, h.deleteSermon)
	h.route(api, http.MethodPost, "/sermons/{id}/preached", user.PermSermonsWrite, h.markPreached)
}

func (h *handler) listSermons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.app.Sermons.List(r.Context(), sermon.Filter{Series: q.Get("series"), Status: sermon.Status(q.Get("status"))})
	respond(w, list, err)
}

func (h *handler) createSermon(w http.ResponseWriter, r *http.Request) {
	var body sermon.Sermon
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	s, err := h.app.Sermons.Create(r.Context(), body)
	created(w, s, err)
}

func (h *handler) getSermon(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Sermons.Get(r.Context(), pathID(r))
	respond(w, s, err)
}

func (h *handler) updateSermon(w http.ResponseWriter, r *http.Request) {
	var body sermon.Sermon
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	body.ID = pathID(r)
	s, err := h.app.Sermons.Update(r.Context(), body)
	respond(w, s, err)
}

func (h *handler) deleteSermon(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Sermons.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markPreached(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PreachedOn civil.Date `json:"preached_on"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	s, err := h.app.Sermons.MarkPreached(r.Context(), pathID(r), body.PreachedOn)
	respond(w, s, err)
}

func (h *handler) sermonSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.app.Sermons.Series(r.Context())
	respond(w, series, err)
}
