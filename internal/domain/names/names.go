// Package names canonicalizes free-text player names into slugs and comparable tokens.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameParts is the tokenized view of a name used by the duplicate heuristics.
type NameParts struct {
	Tokens        []string
	First         string // first token, or empty
	Last          string // final token when there are at least two tokens, else empty
	IsLastInitial bool   // Last is exactly one letter
	LastInitial   string // first character of Last, or empty
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAccentFolding strips combining marks before normalizing ("José" -> "jose").
// Without it every non-ASCII letter is treated as a separator.
func WithAccentFolding(enabled bool) Option {
	return func(n *Normalizer) {
		n.foldAccents = enabled
	}
}

// Normalizer holds the normalization settings shared by the aggregator, the duplicate
// detector and the canonical name selector of one run.
type Normalizer struct {
	foldAccents bool
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Default is the plain ASCII normalizer used by the package-level helpers.
var Default = New()

// Slugify lowercases and trims text, collapses every run of characters outside
// [a-z0-9] into one hyphen and strips leading and trailing hyphens.
func (n *Normalizer) Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(n.fold(text)))
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if isSlugRune(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// NormalizeForMatch lowercases and trims text, replaces anything outside [a-z0-9 ] with a
// space and collapses whitespace.
func (n *Normalizer) NormalizeForMatch(text string) string {
	s := strings.ToLower(strings.TrimSpace(n.fold(text)))
	mapped := strings.Map(func(r rune) rune {
		if isSlugRune(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokens splits the normalized text on spaces. Empty input yields no tokens.
func (n *Normalizer) Tokens(text string) []string {
	s := n.NormalizeForMatch(text)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, " ")
}

// ParseNameParts splits a name into first/last tokens.
func (n *Normalizer) ParseNameParts(text string) NameParts {
	tokens := n.Tokens(text)
	p := NameParts{Tokens: tokens}
	if len(tokens) > 0 {
		p.First = tokens[0]
	}
	if len(tokens) >= 2 {
		p.Last = tokens[len(tokens)-1]
	}
	if p.Last != "" {
		p.LastInitial = p.Last[:1]
		p.IsLastInitial = len(p.Last) == 1 && p.Last[0] >= 'a' && p.Last[0] <= 'z'
	}
	return p
}

func (n *Normalizer) fold(text string) string {
	if !n.foldAccents {
		return text
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// Slugify applies Default.Slugify.
func Slugify(text string) string { return Default.Slugify(text) }

// NormalizeForMatch applies Default.NormalizeForMatch.
func NormalizeForMatch(text string) string { return Default.NormalizeForMatch(text) }

// Tokens applies Default.Tokens.
func Tokens(text string) []string { return Default.Tokens(text) }

// ParseNameParts applies Default.ParseNameParts.
func ParseNameParts(text string) NameParts { return Default.ParseNameParts(text) }
