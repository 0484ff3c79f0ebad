package api

import "net/http"

// StatsProvider exposes service and last-run counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// handleStats serves GET /stats. A missing provider yields an empty object.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := map[string]interface{}{}
	if s.stats != nil {
		stats = s.stats.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}
