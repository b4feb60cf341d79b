package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerPeople(api *mux.Router) {
	h.route(api, http.MethodGet, "/people", user.PermPeopleRead, h.listPeople)
	h.route(api, http.MethodPost, "/people", user.PermPeopleWrite, h.createPerson)
	h.route(api, http.MethodGet, "/people/birthdays", user.PermPeopleRead, h.birthdays)
	h.route(api, http.MethodGet, "/people/{id}", user.PermPeopleRead, h.getPerson)
	h.route(api, http.MethodPut, "/people/{id}", user.PermPeopleWrite, h.updatePerson)
	h.route(api, http.MethodDelete, "/people/{id}", user.PermPeopleWrite, h.deletePerson)
}

func (h *handler) listPeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", 0, 0, 500)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		writeError(w, err)
		return
	}
	people, err := h.app.People.List(r.Context(), person.Filter{
		Status: person.Status(q.Get("status")),
		Query:  q.Get("q"),
		Tag:    q.Get("tag"),
		Limit:  limit,
		Offset: offset,
	})
	respond(w, people, err)
}

func (h *handler) createPerson(w http.ResponseWriter, r *http.Request) {
	var body person.Person
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	p, err := h.app.People.Create(r.Context(), body)
	created(w, p, err)
}

func (h *handler) getPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.People.Get(r.Context(), pathID(r))
	respond(w, p, err)
}

func (h *handler) updatePerson(w http.ResponseWriter, r *http.Request) {
	var body person.Person
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	body.ID = pathID(r)
	p, err := h.app.People.Update(r.Context(), body)
	respond(w, p, err)
}

func (h *handler) deletePerson(w http.ResponseWriter, r *http.Request) {
	if err := h.app.People.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) birthdays(w http.ResponseWriter, r *http.Request) {
	month, err := queryInt(r, "month", int(h.tenantNow(r).Month()), 1, 12)
	if err != nil {
		writeError(w, err)
		return
	}
	people, err := h.app.People.Birthdays(r.Context(), time.Month(month))
	respond(w, people, err)
}
