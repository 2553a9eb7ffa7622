package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tailor-hq/loom/pkg/govern"
)

// BudgetStatus is the JSON body served by /api/v1/budget.
type BudgetStatus struct {
	Spent     float64            `json:"spent"`
	Ceiling   float64            `json:"ceiling"`
	Overrun   float64            `json:"overrun"`
	Breakdown map[string]float64 `json:"breakdown"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.governor.StatsAll())
}

func (s *Server) handleDependencyStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("dependency")

	stats, err := s.governor.Stats(name)
	if err != nil {
		if errors.Is(err, govern.ErrUnknownDependency) {
			writeError(w, http.StatusNotFound, "unknown dependency: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	tracker := s.governor.Budget()
	writeJSON(w, http.StatusOK, BudgetStatus{
		Spent:     tracker.Spent(),
		Ceiling:   tracker.Ceiling(),
		Overrun:   tracker.Overrun(),
		Breakdown: tracker.Breakdown(),
	})
}

// handleBudgetReset clears the accumulated spend. The hard stop latches
// once tripped, so this is the operator's lever for resuming work after
// raising the ceiling or accepting the overrun.
func (s *Server) handleBudgetReset(w http.ResponseWriter, r *http.Request) {
	tracker := s.governor.Budget()
	before := tracker.Spent()
	tracker.Reset()

	s.logger.Info("budget reset by operator", "spent_before", before)
	writeJSON(w, http.StatusOK, map[string]float64{"spent_before": before})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
