// Package http serves the ledger, templates, categories and overview as a
// JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/middleware/ratelimit"
	"budgetbook/internal/middleware/security"
	"budgetbook/internal/middleware/trace"
	"budgetbook/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// MaterializeQueue hands batch requests to the worker.
type MaterializeQueue interface {
	PublishMaterializeRequest(ctx context.Context, req *amqp.MaterializeRequest) error
}

// BatchRunner materializes templates into a period.
type BatchRunner interface {
	Run(ctx context.Context, p core.Period) (services.BatchResult, error)
}

// Deps are the services behind the API. Queue is optional; without it
// asynchronous materialization is refused.
type Deps struct {
	Ledger       *services.LedgerService
	Templates    *services.TemplateService
	Categories   *services.CategoryService
	Dashboard    *services.DashboardService
	Materializer BatchRunner
	Queue        MaterializeQueue
	Logger       *applog.Logger

	// RateLimitRPM caps state-changing requests per client; 0 disables it.
	RateLimitRPM int
	Now          func() time.Time
}

// Server embeds http.Server so callers keep ListenAndServe and Close.
type Server struct {
	http.Server

	deps      Deps
	selection *selectionState
	trace     *trace.Middleware
	detector  *security.Detector
	limiter   *ratelimit.Limiter
}

// NewServer builds the router. It reads the category registry once to seed
// the current selection.
func NewServer(ctx context.Context, addr string, deps Deps) (*Server, error) {
	if deps.Ledger == nil || deps.Templates == nil || deps.Categories == nil || deps.Dashboard == nil || deps.Materializer == nil {
		return nil, errors.New("http: missing service dependency")
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sel, err := newSelectionState(ctx, deps.Categories)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:      deps,
		selection: sel,
		detector:  security.NewDetector(),
	}
	s.trace = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)
	if deps.RateLimitRPM > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM})
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.trace.Handler)
	r.Use(applog.Middleware(s.deps.Logger.WithComponent(applog.ComponentHTTP)))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware(true))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleAddCategory)
			r.Post("/move", s.handleMoveCategory)
			r.Delete("/{label}", s.handleRemoveCategory)
		})

		r.Get("/selection", s.handleGetSelection)
		r.Put("/selection", s.handleSetSelection)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Post("/{id}/toggle", s.handleToggleTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Post("/", s.handleCreateEntry)
			r.Delete("/{id}", s.handleDeleteEntry)
		})

		r.Get("/overview", s.handleOverview)
		r.Post("/materialize", s.handleMaterialize)
		r.Get("/export.csv", s.handleExportCSV)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.selection.close()
	return s.Server.Shutdown(ctx)
}
