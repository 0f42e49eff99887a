// Package textmatch provides the fuzzy name matching shared by the portion
// reference table and the nutrition resolver.
package textmatch

import (
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
)

// MatchKind ranks how a query matched a candidate name.
type MatchKind int

const (
	NoMatch MatchKind = iota
	TokenOverlap
	Substring
	ExactPhrase
)

// Normalize lowercases s, replaces punctuation with spaces and collapses runs
// of whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// TokenEqual compares two normalized tokens, tolerating a single edit on
// longer words so plurals and small typos still match.
func TokenEqual(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 5 || len(b) < 5 {
		return false
	}
	return levenshtein.Distance(a, b) <= 1
}

// SharedTokens counts tokens of a that appear in b.
func SharedTokens(a, b []string) int {
	shared := 0
	for _, ta := range a {
		for _, tb := range b {
			if TokenEqual(ta, tb) {
				shared++
				break
			}
		}
	}
	return shared
}

// ContainsPhrase reports whether needle appears in haystack on word
// boundaries. Both must already be normalized.
func ContainsPhrase(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// Match classifies how query relates to candidate.
func Match(query, candidate string) MatchKind {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return NoMatch
	}
	if q == c {
		return ExactPhrase
	}
	if ContainsPhrase(q, c) || ContainsPhrase(c, q) {
		return Substring
	}
	if SharedTokens(strings.Fields(q), strings.Fields(c)) > 0 {
		return TokenOverlap
	}
	return NoMatch
}

// Best returns the index of the candidate that best matches query, or -1.
// An exact phrase wins; then the longest candidate found as a phrase in the
// query (or containing it); then the candidate sharing the most tokens.
// Ties keep the earlier candidate.
func Best(query string, candidates []string) int {
	q := Normalize(query)
	if q == "" {
		return -1
	}
	norm := make([]string, len(candidates))
	for i, c := range candidates {
		norm[i] = Normalize(c)
		if norm[i] == q {
			return i
		}
	}

	best, bestLen := -1, 0
	for i, c := range norm {
		if c == "" {
			continue
		}
		if (ContainsPhrase(q, c) || ContainsPhrase(c, q)) && len(c) > bestLen {
			best, bestLen = i, len(c)
		}
	}
	if best >= 0 {
		return best
	}

	qTokens := strings.Fields(q)
	bestShared := 0
	for i, c := range norm {
		if shared := SharedTokens(strings.Fields(c), qTokens); shared > bestShared {
			best, bestShared = i, shared
		}
	}
	return best
}
