package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/okian/quizboard/internal/adapters/csvio"
	"github.com/okian/quizboard/internal/domain/leaderboard"
)

// ExportDependencies exposes the latest run.
type ExportDependencies interface {
	Latest() *leaderboard.Result
}

// ExportHandler serves the CSV reports.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles GET /export/{merged,duplicates,cumulative}.csv requests.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/export/")

	var write func(io.Writer, *leaderboard.Result) error
	switch name {
	case "merged.csv":
		write = func(out io.Writer, res *leaderboard.Result) error {
			return csvio.WriteMerged(out, res.QuizIDs, res.Merged)
		}
	case "duplicates.csv":
		write = func(out io.Writer, res *leaderboard.Result) error {
			return csvio.WriteDuplicates(out, res.Duplicates)
		}
	case "cumulative.csv":
		write = func(out io.Writer, res *leaderboard.Result) error {
			return csvio.WriteCumulative(out, res.QuizIDs, res.Ranked)
		}
	default:
		http.NotFound(w, r)
		return
	}

	res := latest(w, h.deps, op)
	if res == nil {
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, res); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
