// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/domain/leaderboard"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Latest returns the most recent pipeline result, or nil before the first run.
	Latest() *leaderboard.Result

	// Refresh runs the pipeline now. A non-nil result with an error is a partial run.
	Refresh(ctx context.Context) (*leaderboard.Result, error)

	// Read operations expose the stored merged leaderboard.
	QuizIDs(ctx context.Context) ([]string, error)
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, slug string) (repository.Entry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	stats              StatsProvider
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	duplicatesHandler  *DuplicatesHandler
	refreshHandler     *RefreshHandler
	exportHandler      *ExportHandler
	dashboardHandler   *DashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		stats:              statsProvider,
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		duplicatesHandler:  NewDuplicatesHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
		exportHandler:      NewExportHandler(deps),
		dashboardHandler:   NewDashboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard/raw", MetricsMiddleware(s.leaderboardHandler.HandleGetRaw, "leaderboard_raw"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/duplicates", MetricsMiddleware(s.duplicatesHandler.HandleGetDuplicates, "duplicates"))
	mux.HandleFunc("/duplicates/advisory", MetricsMiddleware(s.duplicatesHandler.HandleGetAdvisory, "duplicates_advisory"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/export/", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError translates run history errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrNoRun):
		writeError(w, http.StatusServiceUnavailable, "not_ready", WrapKind(op, ErrNotReady, err))
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

type resultSource interface {
	Latest() *leaderboard.Result
}

// latest returns the current result or writes 503.
func latest(w http.ResponseWriter, deps resultSource, op string) *leaderboard.Result {
	res := deps.Latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
	}
	return res
}

// parseLimit reads ?limit=N. An absent limit means maxLimit.
func parseLimit(r *http.Request, maxLimit int) (int, string, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return maxLimit, "", true
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		return 0, "bad_request", false
	}
	if n > maxLimit {
		return 0, "limit_exceeded", false
	}
	return n, "", true
}
