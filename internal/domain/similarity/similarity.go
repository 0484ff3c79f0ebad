// Package similarity scores how close two normalized strings are.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// EditDistance returns the Levenshtein distance between a and b with unit costs for
// insertion, deletion and substitution. Comparison is rune-wise and case-sensitive.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns 1 - EditDistance/max(len) in [0,1]; two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(EditDistance(a, b))/float64(maxLen)
}
