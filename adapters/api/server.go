package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"metascreen/app"
	"metascreen/domain/core"
	"metascreen/domain/screen"
	"metascreen/internal"
	"metascreen/ports"
)

// Server exposes the screening pipeline and stored runs over HTTP
type Server struct {
	router   *chi.Mux
	pipeline *app.PipelineService
	repo     ports.RunRepository
	defaults app.PipelineRequest
	logger   *internal.Logger
}

// NewServer creates the HTTP server. The defaults request carries the
// configured dataset, label column and screening options; a screen call
// may override the statistical knobs per request.
func NewServer(pipeline *app.PipelineService, repo ports.RunRepository, defaults app.PipelineRequest, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		router:   chi.NewRouter(),
		pipeline: pipeline,
		repo:     repo,
		defaults: defaults,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the underlying handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the server on the given port
func (s *Server) ListenAndServe(port string) error {
	s.logger.Info("HTTP server listening on :%s", port)
	return http.ListenAndServe(":"+port, s.router)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/api/screen", s.handleScreen)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Delete("/api/runs/{id}", s.handleDeleteRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// screenRequest carries the per-call overrides for a screening run
type screenRequest struct {
	Alpha        *float64 `json:"alpha,omitempty"`
	Test         string   `json:"test,omitempty"`
	ClassA       string   `json:"class_a,omitempty"`
	ClassB       string   `json:"class_b,omitempty"`
	OnError      string   `json:"on_error,omitempty"`
	CapCorrected *bool    `json:"cap_corrected,omitempty"`
	CVFolds      int      `json:"cv_folds,omitempty"`
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	req := s.defaults

	if r.Body != nil && r.ContentLength != 0 {
		var overrides screenRequest
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		applyOverrides(&req, overrides)
	}

	if err := req.Options.Normalize().Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		if core.IsFatalScreenError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("Screen request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "screening failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func applyOverrides(req *app.PipelineRequest, o screenRequest) {
	if o.Alpha != nil {
		req.Options.Alpha = *o.Alpha
	}
	if o.Test != "" {
		req.Options.Test = screen.TestKind(o.Test)
	}
	if o.ClassA != "" {
		req.Options.ClassA = o.ClassA
	}
	if o.ClassB != "" {
		req.Options.ClassB = o.ClassB
	}
	if o.OnError != "" {
		req.Options.OnError = screen.ErrorPolicy(o.OnError)
	}
	if o.CapCorrected != nil {
		req.Options.CapCorrected = *o.CapCorrected
	}
	if o.CVFolds > 0 {
		req.CVFolds = o.CVFolds
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}

	filters := ports.RunFilters{
		Dataset: r.URL.Query().Get("dataset"),
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}

	runs, err := s.repo.List(r.Context(), filters)
	if err != nil {
		s.logger.Error("Failed to list runs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*screen.Run{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}

	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("Failed to get run %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}

	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("Failed to delete run %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
