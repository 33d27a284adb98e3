package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"slipway/internal/history"

	"github.com/go-chi/chi/v5"
)

// MaxRunsLimit caps the page size for run listings
const MaxRunsLimit = 100

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
	}

	if s.History != nil {
		if latest, err := s.History.LatestRun(r.Context()); err == nil && latest != nil {
			response["last_run_status"] = latest.Status
			response["last_run_at"] = latest.StartedAt
		}
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleListRuns returns recent runs, most recent first
func (s *Server) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Run history is disabled"})
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}

	runs, err := s.History.ListRuns(r.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to list runs", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch runs"})
		return
	}

	if runs == nil {
		runs = []history.RunRecord{}
	}

	response := map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleLatestRun returns the most recent run
func (s *Server) HandleLatestRun(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Run history is disabled"})
		return
	}

	latest, err := s.History.LatestRun(r.Context())
	if err != nil {
		s.Logger.Error("Failed to get latest run", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch run"})
		return
	}

	if latest == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "No runs recorded"})
		return
	}

	s.respondJSON(w, http.StatusOK, latest)
}

// HandleGetRun returns one run with its step results
func (s *Server) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Run history is disabled"})
		return
	}

	runID, err := strconv.ParseInt(chi.URLParam(r, "runID"), 10, 64)
	if err != nil || runID < 1 {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid run ID"})
		return
	}

	run, err := s.History.GetRun(r.Context(), runID)
	if err != nil {
		s.Logger.Error("Failed to get run", "error", err, "run_id", runID)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch run"})
		return
	}

	if run == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Run not found"})
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
