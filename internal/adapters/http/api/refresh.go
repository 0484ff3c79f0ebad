package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/quizboard/internal/domain/leaderboard"
)

// RefreshDependencies triggers a pipeline run.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (*leaderboard.Result, error)
}

// RefreshHandler handles on-demand refreshes.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /refresh requests. A partial run answers 200 with a warning.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Refresh(r.Context())
	if res == nil {
		writeError(w, http.StatusBadGateway, "refresh_failed", Wrap(op, err))
		return
	}
	resp := RefreshResponse{
		RunID:          res.RunID,
		GeneratedAt:    res.GeneratedAt.Format(time.RFC3339),
		Identities:     res.Stats.Identities,
		Merged:         res.Stats.Merged,
		MissingQuizzes: res.MissingQuizzes,
	}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
