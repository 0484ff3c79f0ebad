package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/okian/quizboard/internal/adapters/csvio"
	"github.com/okian/quizboard/internal/domain/leaderboard"
)

// Dashboard layout: the top rows split into columns of equal height.
const (
	dashboardRows   = 30
	dashboardColumn = 10
	podiumSize      = 3
)

// DashboardHandler renders the merged leaderboard as an HTML page.
type DashboardHandler struct {
	deps ExportDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps ExportDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

type dashboardRow struct {
	Rank   int
	Name   string
	Total  string
	Podium bool
}

type dashboardPage struct {
	Date    string
	RunID   string
	Columns [][]dashboardRow
	Missing []string
}

// HandleDashboard handles GET /dashboard requests. The page is built from the merged CSV
// export read back the way a display reads it: rows need a name, best total first.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res := latest(w, h.deps, op)
	if res == nil {
		return
	}

	var export bytes.Buffer
	if err := csvio.WriteMerged(&export, res.QuizIDs, res.Merged); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	rows, err := csvio.ReadDisplayRows(&export)
	if err != nil && !errors.Is(err, csvio.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	page := dashboardPage{
		Date:    res.GeneratedAt.Format("January 2, 2006"),
		RunID:   res.RunID,
		Columns: dashboardColumns(rows),
		Missing: res.MissingQuizzes,
	}
	var body bytes.Buffer
	if err := dashboardTemplate.Execute(&body, page); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}

func dashboardColumns(rows []csvio.DisplayRow) [][]dashboardRow {
	if len(rows) > dashboardRows {
		rows = rows[:dashboardRows]
	}
	var cols [][]dashboardRow
	for i, row := range rows {
		if i%dashboardColumn == 0 {
			cols = append(cols, make([]dashboardRow, 0, dashboardColumn))
		}
		last := len(cols) - 1
		cols[last] = append(cols[last], dashboardRow{
			Rank:   i + 1,
			Name:   row.Name,
			Total:  leaderboard.FormatNumber(row.Total),
			Podium: i < podiumSize,
		})
	}
	return cols
}
