package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/services/bulletins"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerBulletins(api *mux.Router) {
	h.route(api, http.MethodGet, "/bulletins", user.PermBulletinsRead, h.listBulletins)
	h.route(api, http.MethodPost, "/bulletins", user.PermBulletinsWrite, h.createBulletin)
	h.route(api, http.MethodGet, "/bulletins/{id}", user.PermBulletinsRead, h.getBulletin)
	h.route(api, http.MethodPut, "/bulletins/{id}", user.PermBulletinsWrite, h.updateBulletin)
	h.route(api, http.MethodDelete, "/bulletins/{id}", user.PermBulletinsWrite, h.deleteBulletin)
	h.route(api, http.MethodPost, "/bulletins/{id}/publish", user.PermBulletinsWrite, h.publishBulletin)
	h.route(api, http.MethodPost, "/bulletins/{id}/unpublish", user.PermBulletinsWrite, h.unpublishBulletin)
	h.route(api, http.MethodGet, "/bulletins/{id}/view", user.PermBulletinsRead, h.bulletinView)
	h.route(api, http.MethodGet, "/bulletins/{id}/render", user.PermBulletinsRead, h.renderBulletin)
}

func (h *handler) listBulletins(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, civil.Date{}, civil.Date{})
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.app.Bulletins.List(r.Context(), from, to)
	respond(w, list, err)
}

func (h *handler) createBulletin(w http.ResponseWriter, r *http.Request) {
	var body bulletin.Bulletin
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	b, err := h.app.Bulletins.Create(r.Context(), body)
	created(w, b, err)
}

func (h *handler) getBulletin(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Bulletins.Get(r.Context(), pathID(r))
	respond(w, b, err)
}

func (h *handler) updateBulletin(w http.ResponseWriter, r *http.Request) {
	var body bulletin.Bulletin
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	body.ID = pathID(r)
	b, err := h.app.Bulletins.Update(r.Context(), body)
	respond(w, b, err)
}

func (h *handler) deleteBulletin(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Bulletins.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) publishBulletin(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Bulletins.Publish(r.Context(), pathID(r))
	respond(w, b, err)
}

func (h *handler) unpublishBulletin(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Bulletins.Unpublish(r.Context(), pathID(r))
	respond(w, b, err)
}

func (h *handler) bulletinView(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Bulletins.BuildView(r.Context(), pathID(r))
	respond(w, view, err)
}

func (h *handler) renderBulletin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.app.Bulletins.Render(r.Context(), pathID(r), bulletins.Format(q.Get("format")), bulletins.Mode(q.Get("mode")))
	if err != nil {
		writeError(w, err)
		return
	}
	disposition := "inline"
	if q.Get("download") == "1" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.Header().Set("X-Cache", cacheHeader(out.Cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
