package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
	"budgetbook/internal/store"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = &requestError{msg: "request body is empty"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &requestError{msg: "request body too large"}
		case errors.Is(err, io.EOF):
			return errEmptyBody
		default:
			return &requestError{msg: fmt.Sprintf("malformed JSON: %v", err)}
		}
	}
	if dec.More() {
		return &requestError{msg: "request body must hold a single JSON object"}
	}
	return validateRequest(v)
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re), errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoActiveTemplates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}

	var re *requestError
	if errors.As(err, &re) {
		resp.Fields = re.fields
	}
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, nil)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}

// periodFromQuery starts at the current period and applies the year and
// month query parameters.
func periodFromQuery(r *http.Request, now time.Time) (core.Period, error) {
	sel := core.NewSelector(core.CurrentPeriod(now))
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, &requestError{msg: "invalid year", fields: []FieldError{{Field: "year", Rule: "number"}}}
		}
		sel.SetYear(y)
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, &requestError{msg: "invalid month", fields: []FieldError{{Field: "month", Rule: "number"}}}
		}
		sel.SetMonth(m)
	}
	p := sel.Period()
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

func isBatchError(err error) (*services.BatchError, bool) {
	var be *services.BatchError
	ok := errors.As(err, &be)
	return be, ok
}
