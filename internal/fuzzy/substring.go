package fuzzy

import (
	"sort"
	"strings"
)

// substringMaxLineLen bounds the cost of the substring scorer: lines longer
// than this are skipped rather than scanned, since this algorithm is meant
// for the cheap common case (a handful of literal sub-terms), not for
// scoring arbitrarily large generated lines.
const substringMaxLineLen = 1024

// Substring splits query on whitespace into sub-terms and requires each to
// occur, case-insensitively, as a literal substring of line. Every term is
// searched independently from the start of the line, so "sr bl" and
// "bl sr" match the same lines with the same result; the combined indices
// are sorted afterward. It does no fuzzing: every character of every
// sub-term must appear contiguously.
type Substring struct{}

func (Substring) Name() string { return "substring" }

func (Substring) Score(query, line string) (int64, []int, bool) {
	if query == "" {
		return ScoreMin, nil, false
	}
	if len([]rune(line)) > substringMaxLineLen {
		return ScoreMin, nil, false
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return ScoreMin, nil, false
	}

	lowerLine := []rune(strings.ToLower(line))

	// Per-term score rewards an early first occurrence and penalizes the
	// matched span: 2/(first+1) + 1/(last+1) - span. Summed at float
	// precision and truncated to the integer score at the end.
	var indices []int
	var score float64
	for _, term := range terms {
		termRunes := []rune(term)
		at := indexRunesFrom(lowerLine, termRunes, 0)
		if at < 0 {
			return ScoreMin, nil, false
		}
		last := at + len(termRunes) - 1
		for k := range termRunes {
			indices = append(indices, at+k)
		}
		span := float64(last + 1 - at)
		score += 2/float64(at+1) + 1/float64(last+1) - span
	}

	sort.Ints(indices)

	return clampScore(int64(score)), indices, true
}

// indexRunesFrom returns the rune index of the first occurrence of needle in
// haystack at or after from, or -1 if it does not occur there.
func indexRunesFrom(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return from
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for k := range needle {
			if haystack[i+k] != needle[k] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
