package api

import (
	"net/http"

	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
)

// DuplicatesDependencies exposes the latest run.
type DuplicatesDependencies interface {
	Latest() *leaderboard.Result
}

// DuplicatesHandler serves the duplicate-candidate and advisory reports.
type DuplicatesHandler struct {
	deps DuplicatesDependencies
}

// NewDuplicatesHandler creates a new duplicates handler.
func NewDuplicatesHandler(deps DuplicatesDependencies) *DuplicatesHandler {
	return &DuplicatesHandler{deps: deps}
}

// HandleGetDuplicates handles GET /duplicates[?method=tag[+tag]] requests. With a method
// only pairs found by every listed rule are returned.
func (h *DuplicatesHandler) HandleGetDuplicates(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_duplicates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var want model.Method
	if tag := r.URL.Query().Get("method"); tag != "" {
		if want = model.ParseMethod(tag); want == 0 {
			writeError(w, http.StatusBadRequest, "unknown_method", NewKind(op, ErrBadRequest))
			return
		}
	}
	res := latest(w, h.deps, op)
	if res == nil {
		return
	}
	out := make([]Duplicate, 0, len(res.Duplicates))
	for _, d := range res.Duplicates {
		if want != 0 && !d.Method.Has(want) {
			continue
		}
		out = append(out, fromCandidate(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAdvisory handles GET /duplicates/advisory requests.
func (h *DuplicatesHandler) HandleGetAdvisory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_advisory"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res := latest(w, h.deps, op)
	if res == nil {
		return
	}
	out := make([]Advisory, 0, len(res.Advisory))
	for _, p := range res.Advisory {
		out = append(out, Advisory{
			Name1:      p.Name1,
			Slug1:      p.Slug1,
			Name2:      p.Name2,
			Slug2:      p.Slug2,
			Similarity: p.Similarity,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
