package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/manager"
	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/dgallion1/docmerge/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docmerge.
type Server struct {
	router       chi.Router
	manager      *manager.Manager
	orchestrator *pipeline.Orchestrator
	stats        *stats.RenderStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. rs may be nil.
func NewServer(mgr *manager.Manager, orch *pipeline.Orchestrator, rs *stats.RenderStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		manager:      mgr,
		orchestrator: orch,
		stats:        rs,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/documents", s.handleListDocuments)
		r.Post("/api/documents/available", s.handleAvailableDocuments)
		r.Post("/api/documents/{name}/render", s.handleRender)

		r.Post("/api/merge", s.handleMerge)
		r.Get("/api/merge/{jobID}/status", s.handleMergeStatus)
		r.Get("/api/merge/{jobID}/results/{row}", s.handleMergeResult)

		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engines": s.manager.Engines(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
