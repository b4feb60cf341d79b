package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/donation"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerDonations(api *mux.Router) {
	h.route(api, http.MethodGet, "/donations", user.PermDonationsRead, h.listDonations)
	h.route(api, http.MethodPost, "/donations", user.PermDonationsWrite, h.recordDonation)
	h.route(api, http.MethodGet, "/donations/funds", user.PermDonationsRead, h.fundTotals)
	h.route(api, http.MethodGet, "/donations/statements/{id}", user.PermDonationsRead, h.givingStatement)
}

func (h *handler) listDonations(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, civil.Date{}, civil.Date{})
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	list, err := h.app.Donations.List(r.Context(), donation.Filter{
		From:     from,
		To:       to,
		Fund:     q.Get("fund"),
		PersonID: q.Get("person_id"),
	})
	respond(w, list, err)
}

func (h *handler) recordDonation(w http.ResponseWriter, r *http.Request) {
	var body donation.Donation
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	d, err := h.app.Donations.Record(r.Context(), body)
	created(w, d, err)
}

func (h *handler) fundTotals(w http.ResponseWriter, r *http.Request) {
	now := h.tenantNow(r)
	yearStart := civil.Date{Year: now.Year(), Month: 1, Day: 1}
	from, to, err := dateRange(r, yearStart, civil.DateOf(now))
	if err != nil {
		writeError(w, err)
		return
	}
	totals, err := h.app.Donations.FundTotals(r.Context(), from, to)
	respond(w, totals, err)
}

func (h *handler) givingStatement(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", h.tenantNow(r).Year()-1, 1900, 9999)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.app.Donations.Statement(r.Context(), pathID(r), year)
	respond(w, st, err)
}
