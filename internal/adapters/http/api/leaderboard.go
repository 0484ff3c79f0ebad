// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/domain/leaderboard"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	QuizIDs(ctx context.Context) ([]string, error)
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Latest() *leaderboard.Result
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests (merged board).
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, code, ok := parseLimit(r, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	quizIDs, err := h.deps.QuizIDs(r.Context())
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fromStored(e, quizIDs))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetRaw handles GET /leaderboard/raw?limit=N requests (identities before merging).
func (h *LeaderboardHandler) HandleGetRaw(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_raw_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, code, ok := parseLimit(r, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	res := latest(w, h.deps, op)
	if res == nil {
		return
	}
	ranked := res.Ranked
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	out := make([]Entry, 0, len(ranked))
	for i, id := range ranked {
		out = append(out, fromIdentity(i+1, id, res.QuizIDs))
	}
	writeJSON(w, http.StatusOK, out)
}
