package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/export"
	applog "budgetbook/internal/log"
	"budgetbook/internal/middleware/trace"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r, s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.Ledger.EntriesForPeriod(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

// handleCreateEntry stores a manual entry. An expense without a category
// takes the currently selected entry category.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if in.Type == core.Expense && in.Category == "" {
		in.Category = s.selection.get().Entry
	}
	e, err := s.deps.Ledger.CreateEntry(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(e))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.Templates.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]templateResponse, len(templates))
	for i, t := range templates {
		out[i] = toTemplateResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if in.Category == "" {
		in.Category = s.selection.get().Template
	}
	t, err := s.deps.Templates.CreateTemplate(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(t))
}

func (s *Server) handleToggleTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Templates.ToggleTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(t))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Templates.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r, s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.deps.Dashboard.Overview(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewResponse(ov))
}

// handleMaterialize runs a batch for the requested period, defaulting to the
// current one. With ?async=true the request is queued for the worker instead.
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	var req materializeRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, err)
		return
	}
	sel := core.NewSelector(core.CurrentPeriod(s.deps.Now()))
	if req.Year != 0 {
		sel.SetYear(req.Year)
	}
	if req.Month != 0 {
		sel.SetMonth(req.Month)
	}
	p := sel.Period()

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		s.enqueueMaterialize(w, r, p)
		return
	}

	res, err := s.deps.Materializer.Run(r.Context(), p)
	if err != nil {
		if be, ok := isBatchError(err); ok {
			writeJSON(w, http.StatusMultiStatus, toBatchResponse(res, be))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchResponse(res, nil))
}

func (s *Server) enqueueMaterialize(w http.ResponseWriter, r *http.Request, p core.Period) {
	if s.deps.Queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "materialize queue is not configured"})
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	id := trace.GetRequestID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.deps.Queue.PublishMaterializeRequest(r.Context(), amqp.NewMaterializeRequest(id, p)); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to queue materialize request", err, applog.OpMaterialize,
				applog.NewFields().WithPeriod(p).WithRequestID(id))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "could not queue materialize request"})
		return
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{RequestID: id, Period: p.String(), Status: "queued"})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r, s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.Ledger.EntriesForPeriod(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, entries); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(p)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
