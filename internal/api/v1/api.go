// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/pipeline"
	"github.com/vmunix/vodcat/internal/server"
)

// Config holds API server configuration.
type Config struct {
	Version string
	// FeedCategories are catalogs filled by feed imports. They are readable
	// through the catalog endpoint but cannot be triggered.
	FeedCategories []string
}

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	cfg  Config
}

// New creates a new v1 API server.
func New(deps ServerDeps, cfg Config) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	return &Server{deps: deps, cfg: cfg}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)

	// Catalog
	mux.HandleFunc("GET /api/v1/categories", s.listCategories)
	mux.HandleFunc("GET /api/v1/catalog/{category}", s.getCatalog)

	// Runs
	mux.HandleFunc("GET /api/v1/runs", s.requireRuns(s.listRuns))
	mux.HandleFunc("GET /api/v1/runs/{id}", s.requireRuns(s.getRun))
	mux.HandleFunc("POST /api/v1/runs", s.triggerRun)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusToResponse(s.deps.Scheduler.Status(), len(s.deps.Scheduler.Categories()))
	resp.Version = s.cfg.Version
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.deps.Scheduler.Categories()
	resp := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		resp = append(resp, categoryResponse{Name: c.Name, URL: c.URL, Kind: c.Kind})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("category")
	if !s.knownCatalog(name) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("category %q not configured", name))
		return
	}

	cat, err := s.deps.Catalogs.Read(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "LOAD_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, catalogToResponse(cat))
}

func (s *Server) knownCatalog(name string) bool {
	if _, err := pipeline.Select(s.deps.Scheduler.Categories(), []string{name}); err == nil {
		return true
	}
	return slices.Contains(s.cfg.FeedCategories, name)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	f := history.Filter{
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit", 50),
	}
	runs, err := s.deps.Runs.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", err.Error())
		return
	}
	if runs == nil {
		runs = []*history.Run{}
	}
	writeJSON(w, http.StatusOK, listRunsResponse{Items: runs, Total: len(runs)})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Runs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	cats, err := s.deps.Scheduler.Trigger(req.Categories)
	switch {
	case errors.Is(err, pipeline.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "UNKNOWN_CATEGORY", err.Error())
		return
	case errors.Is(err, server.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	resp := triggerResponse{Queued: make([]string, 0, len(cats))}
	for _, c := range cats {
		resp.Queued = append(resp.Queued, c.Name)
	}
	writeJSON(w, http.StatusAccepted, resp)
}
