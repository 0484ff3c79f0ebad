package leaderboard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var weekPattern = regexp.MustCompile(`week-(\d+)`)

// WeekLabel returns the week number embedded in a quiz id, or "?".
func WeekLabel(quizID string) string {
	if m := weekPattern.FindStringSubmatch(quizID); m != nil {
		return m[1]
	}
	return "?"
}

// ColumnLabel returns the report column header for a quiz id ("week-3-dns" -> "W3-dns").
func ColumnLabel(quizID string) string {
	return strings.Replace(quizID, "week-", "W", 1)
}

// FormatNumber renders a score in its shortest exact form (100, 92.5).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent renders a similarity as a whole percentage, or "" when absent.
func FormatPercent(score *float64) string {
	if score == nil {
		return ""
	}
	return fmt.Sprintf("%.0f%%", *score*100)
}
