// Package report renders the console leaderboard report.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/okian/quizboard/internal/adapters/csvio"
	"github.com/okian/quizboard/internal/adapters/source"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
)

const (
	ruleWidth = 80
	nameWidth = 26
)

var rule = strings.Repeat("═", ruleWidth)

// AuthGuidance is printed when the database refused an unauthenticated read.
const AuthGuidance = `
╔════════════════════════════════════════════════════════════════╗
║  AUTH REQUIRED - The database requires authentication.         ║
║                                                                ║
║  Option 1: Temporarily allow public reads in Firebase Console  ║
║  Option 2: Export data manually and pass it with -file         ║
║  Option 3: Provide an auth token (see below)                   ║
╚════════════════════════════════════════════════════════════════╝

To add auth, get a token from browser DevTools while on the quiz:
  1. Open quiz in browser, open DevTools → Application → Local Storage
  2. Find 'firebaseAuth' and copy the idToken value
  3. Run: QUIZBOARD_AUTH_TOKEN="your-token" leaderboard
`

// Option configures a Renderer.
type Option func(*Renderer)

// WithCSVSection toggles the copy-paste CSV block at the end of the report.
func WithCSVSection(enabled bool) Option {
	return func(r *Renderer) { r.csv = enabled }
}

// Renderer writes the human-readable report.
type Renderer struct {
	csv bool
}

// New creates a Renderer. The CSV section is on by default.
func New(opts ...Option) *Renderer {
	r := &Renderer{csv: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchSummary writes one status line per configured quiz.
func FetchSummary(w io.Writer, snap model.Snapshot, fetchErr error) error {
	failed := quizErrors(fetchErr)
	missing := make(map[string]bool, len(snap.Missing))
	for _, q := range snap.Missing {
		missing[q] = true
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Fetching leaderboard data from all quizzes...")
	fmt.Fprintln(bw)
	for _, quizID := range snap.QuizIDs {
		qe, isFailed := failed[quizID]
		switch {
		case isFailed && errors.Is(qe, source.ErrAuthRequired):
			fmt.Fprintf(bw, "  %s... ❌ (auth required)\n", quizID)
		case isFailed:
			fmt.Fprintf(bw, "  %s... ❌ (%v)\n", quizID, qe.Err)
		case missing[quizID]:
			fmt.Fprintf(bw, "  %s... ❌ (missing)\n", quizID)
		default:
			fmt.Fprintf(bw, "  %s... ✓ (%d entries)\n", quizID, len(snap.Quizzes[quizID]))
		}
	}
	return bw.Flush()
}

// AuthRequired reports whether any quiz failed for lack of credentials.
func AuthRequired(fetchErr error) bool {
	return errors.Is(fetchErr, source.ErrAuthRequired)
}

// quizErrors indexes the per-quiz failures inside a joined fetch error.
func quizErrors(err error) map[string]*source.QuizError {
	out := make(map[string]*source.QuizError)
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var qe *source.QuizError
		if errors.As(err, &qe) {
			out[qe.QuizID] = qe
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}

// Render writes the full report for res.
func (r *Renderer) Render(w io.Writer, res *leaderboard.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, "                    CUMULATIVE LEADERBOARD REPORT")
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "Total unique players (by nameSlug): %d\n", len(res.Ranked))
	fmt.Fprintf(bw, "Total quizzes: %d\n", len(res.QuizIDs))
	if len(res.MissingQuizzes) > 0 {
		fmt.Fprintf(bw, "Missing quizzes: %s\n", strings.Join(res.MissingQuizzes, ", "))
	}
	fmt.Fprintln(bw)

	r.table(bw, res)
	r.details(bw, res)
	r.advisory(bw, res.Advisory)
	if len(res.Merged) < len(res.Ranked) {
		fmt.Fprintf(bw, "Merged leaderboard: %d players after folding %d duplicate identities\n",
			len(res.Merged), len(res.Ranked)-len(res.Merged))
	}

	if r.csv {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, rule)
		fmt.Fprintln(bw, "CSV FORMAT (copy below for spreadsheet import):")
		fmt.Fprintln(bw, rule)
		fmt.Fprintln(bw)
		if err := csvio.WriteCumulative(bw, res.QuizIDs, res.Ranked); err != nil {
			return fmt.Errorf("render csv section: %w", err)
		}
	}
	return bw.Flush()
}

func (r *Renderer) table(w io.Writer, res *leaderboard.Result) {
	fmt.Fprintln(w, "┌─────┬────────────────────────────┬─────────┬────────────────────────────────┐")
	fmt.Fprintln(w, "│ Rank│ Player                     │ Total   │ Quizzes Played                 │")
	fmt.Fprintln(w, "├─────┼────────────────────────────┼─────────┼────────────────────────────────┤")
	for i, id := range res.Ranked {
		played := fmt.Sprintf("%d/%d quizzes", id.QuizCount(), len(res.QuizIDs))
		fmt.Fprintf(w, "│ %3d │ %-*s │ %7s │ %-30s │\n",
			i+1, nameWidth, truncate(id.Label(), nameWidth), leaderboard.FormatNumber(id.Total), played)
	}
	fmt.Fprintln(w, "└─────┴────────────────────────────┴─────────┴────────────────────────────────┘")
}

func (r *Renderer) details(w io.Writer, res *leaderboard.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DETAILED SCORES BY PLAYER:")
	fmt.Fprintln(w)
	for i, id := range res.Ranked {
		fmt.Fprintf(w, "%d. %s (%s)\n", i+1, id.DisplayName, id.Slug)
		fmt.Fprintf(w, "   Total: %s points across %d quizzes\n", leaderboard.FormatNumber(id.Total), id.QuizCount())
		fmt.Fprintf(w, "   %s\n", Breakdown(id, res.QuizIDs))
		if n := len(id.SourceIDs); n > 1 {
			fmt.Fprintf(w, "   ⚠️  Multiple UIDs detected (%d) - same name, different devices\n", n)
		}
		fmt.Fprintln(w)
	}
}

func (r *Renderer) advisory(w io.Writer, pairs []model.PossibleDuplicate) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "⚠️  POTENTIAL DUPLICATES (similar names - may be same person)")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	for _, p := range pairs {
		sim := p.Similarity
		fmt.Fprintf(w, "  %q ↔ %q (%s similar)\n", p.Name1, p.Name2, leaderboard.FormatPercent(&sim))
		fmt.Fprintf(w, "     slugs: %s / %s\n\n", p.Slug1, p.Slug2)
	}
}

// Breakdown renders the per-week scores of one identity ("W1:100 W2:-").
func Breakdown(id *model.Identity, quizIDs []string) string {
	parts := make([]string, 0, len(quizIDs))
	for _, q := range quizIDs {
		week := leaderboard.WeekLabel(q)
		if v, ok := id.QuizScore(q); ok {
			parts = append(parts, "W"+week+":"+leaderboard.FormatNumber(v))
		} else {
			parts = append(parts, "W"+week+":-")
		}
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
