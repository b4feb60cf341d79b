package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/httputil"
)

func (h *handler) registerAttendance(api *mux.Router) {
	h.route(api, http.MethodGet, "/attendance/counts", user.PermAttendanceRead, h.listCounts)
	h.route(api, http.MethodPost, "/attendance/counts", user.PermAttendanceWrite, h.recordCount)
	h.route(api, http.MethodPost, "/attendance/checkins", user.PermAttendanceWrite, h.checkIn)
	h.route(api, http.MethodGet, "/attendance/summary", user.PermAttendanceRead, h.attendanceSummary)
}

func (h *handler) listCounts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, civil.Date{}, civil.Date{})
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := h.app.Attendance.ListCounts(r.Context(), from, to)
	respond(w, counts, err)
}

func (h *handler) recordCount(w http.ResponseWriter, r *http.Request) {
	var body attendance.Count
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	c, err := h.app.Attendance.RecordCount(r.Context(), body)
	created(w, c, err)
}

func (h *handler) checkIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PersonID    string     `json:"person_id"`
		ServiceDate civil.Date `json:"service_date"`
		ServiceName string     `json:"service_name"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}
	c, isNew, err := h.app.Attendance.CheckIn(r.Context(), body.PersonID, body.ServiceDate, body.ServiceName)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, c)
}

func (h *handler) attendanceSummary(w http.ResponseWriter, r *http.Request) {
	today := civil.DateOf(h.tenantNow(r))
	from, to, err := dateRange(r, today.AddDays(-27), today)
	if err != nil {
		writeError(w, err)
		return
	}
	sum, err := h.app.Attendance.Summary(r.Context(), from, to)
	respond(w, sum, err)
}
