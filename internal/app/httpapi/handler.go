package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/user"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/internal/httputil"
	"github.com/flockhq/flock/internal/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) { httputil.WriteJSON(w, status, v) }

func writeError(w http.ResponseWriter, err error) { httputil.WriteError(w, err) }

// respond writes v with 200, or the error.
func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// created writes v with 201, or the error.
func created(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func principalOf(r *http.Request) (middleware.Principal, bool) {
	return middleware.PrincipalFrom(r.Context())
}

func callerRole(r *http.Request) user.Role {
	p, _ := principalOf(r)
	return p.Role
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (civil.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, apperrors.Validationf("%s must be YYYY-MM-DD", name)
	}
	return d, nil
}

// queryInt parses an optional integer query parameter within [min, max].
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, apperrors.Validationf("%s must be an integer between %d and %d", name, min, max)
	}
	return n, nil
}

// dateRange reads from/to, falling back to the given defaults.
func dateRange(r *http.Request, defFrom, defTo civil.Date) (civil.Date, civil.Date, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	if from.IsZero() {
		from = defFrom
	}
	if to.IsZero() {
		to = defTo
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return civil.Date{}, civil.Date{}, apperrors.Validation("to must not be before from")
	}
	return from, to, nil
}

// tenantNow is the current time in the caller's church timezone.
func (h *handler) tenantNow(r *http.Request) time.Time {
	st, err := h.app.Settings.Get(r.Context())
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(st.Location())
}
