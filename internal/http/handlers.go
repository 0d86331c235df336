package http

import (
	"fmt"
	"net/http"
	"net/url"

	"budgetbook/internal/core"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the category list can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Categories.Registry(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "budgetbook_http_requests_total %d\n", s.trace.TotalRequests())
	fmt.Fprintf(w, "budgetbook_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	if s.limiter != nil {
		fmt.Fprintf(w, "budgetbook_ratelimit_active_clients %d\n", s.limiter.ActiveClients())
	}
}

func (s *Server) categoriesBody(r *core.Registry) categoriesResponse {
	labels := r.Labels()
	items := make([]categoryItem, len(labels))
	for i, l := range labels {
		items[i] = categoryItem{Label: l, Color: core.ColorOf(l)}
	}
	sel := s.selection.get()
	return categoriesResponse{
		Categories: items,
		Selection:  selectionResponse{Entry: sel.Entry, Template: sel.Template},
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	reg, err := s.deps.Categories.Registry(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.categoriesBody(reg))
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := s.deps.Categories.AddCategory(r.Context(), req.Label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.categoriesBody(reg))
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if unescaped, err := url.PathUnescape(label); err == nil {
		label = unescaped
	}
	reg, err := s.deps.Categories.RemoveCategory(r.Context(), label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.categoriesBody(reg))
}

func (s *Server) handleMoveCategory(w http.ResponseWriter, r *http.Request) {
	var req moveCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := s.deps.Categories.MoveCategory(r.Context(), *req.Index, core.Direction(req.Direction))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.categoriesBody(reg))
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	sel := s.selection.get()
	writeJSON(w, http.StatusOK, selectionResponse{Entry: sel.Entry, Template: sel.Template})
}

// handleSetSelection changes the picked categories. Empty fields keep the
// current value; labels that are not registered fall back to the default.
func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := s.deps.Categories.Registry(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sel := s.selection.get()
	if req.Entry != "" {
		sel.Entry = req.Entry
	}
	if req.Template != "" {
		sel.Template = req.Template
	}
	sel = s.selection.set(sel, reg)
	writeJSON(w, http.StatusOK, selectionResponse{Entry: sel.Entry, Template: sel.Template})
}
