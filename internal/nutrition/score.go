package nutrition

import (
	"regexp"
	"strings"

	"go-meal-analyzer/internal/textmatch"
)

// Acceptance thresholds for the provider tiers.
const (
	PrimaryThreshold   = 70
	SecondaryThreshold = 50
)

var supplementPattern = regexp.MustCompile(`(?i)\b(supplement|protein powder|whey|capsules?|tablets?|vitamins?|multivitamin|shake mix|meal replacement|powder)\b`)

// ScoreFunc rates how well a candidate matches a query.
type ScoreFunc func(query string, c Candidate) int

// PrimaryScore rates a candidate from the primary provider.
func PrimaryScore(query string, c Candidate) int {
	q := textmatch.Normalize(query)
	name := textmatch.Normalize(c.Name)
	score := 0

	switch {
	case q != "" && name == q:
		score += 100
	case q != "" && strings.Contains(name, q):
		score += 50
	case name != "" && strings.Contains(q, name):
		score += 40
	}

	score += 10 * textmatch.SharedTokens(strings.Fields(q), strings.Fields(name))

	if c.Nutrition.Complete() {
		score += 20
	}
	if c.Branded() {
		score += 5
	}
	if words := len(strings.Fields(name)); words > 0 && words <= 3 {
		score += 10
	}
	if supplementPattern.MatchString(c.Name) {
		score -= 30
	}
	return score
}

// SecondaryScore adds a bonus for curated reference data.
func SecondaryScore(query string, c Candidate) int {
	score := PrimaryScore(query, c)
	if c.ReferenceData {
		score += 15
	}
	return score
}

// confidenceFromScore maps a score onto [floor, ceil].
func confidenceFromScore(score int, floor, ceil float64) float64 {
	c := float64(score) / 150
	if c < floor {
		return floor
	}
	if c > ceil {
		return ceil
	}
	return c
}
