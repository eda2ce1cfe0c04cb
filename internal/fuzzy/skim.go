package fuzzy

import (
	"unicode"

	"github.com/hbollon/go-edlib"
)

// Skim is the smart-case scorer: a query containing an uppercase letter
// matches case-sensitively, an all-lowercase query matches
// case-insensitively. It picks the leftmost-greedy subsequence, then weighs
// compactness (how tightly the match is packed) against the Jaro-Winkler
// similarity between the query and the matched span, the same
// go-edlib-backed similarity measure the rest of this module's ancestry uses
// for approximate term matching.
type Skim struct{}

func (Skim) Name() string { return "skim" }

func (Skim) Score(query, line string) (int64, []int, bool) {
	if query == "" {
		return ScoreMin, nil, false
	}

	q := []rune(query)
	s := []rune(line)
	indices, ok := greedySubsequence(q, s, isSmartCase(query))
	if !ok {
		return ScoreMin, nil, false
	}

	span := indices[len(indices)-1] - indices[0] + 1
	compactness := int64(len(q))*100 - int64(span-len(q))*10

	matched := string(s[indices[0] : indices[len(indices)-1]+1])
	similarity, err := edlib.StringsSimilarity(query, matched, edlib.JaroWinkler)
	if err != nil {
		similarity = 0
	}

	return clampScore(compactness + int64(similarity*100)), indices, true
}

// isSmartCase reports whether query contains any uppercase letter, in which
// case matching must be case-sensitive.
func isSmartCase(query string) bool {
	for _, r := range query {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// greedySubsequence finds the leftmost occurrence of each query rune in s,
// in order, advancing past each match before searching for the next.
func greedySubsequence(q, s []rune, caseSensitive bool) ([]int, bool) {
	indices := make([]int, 0, len(q))
	j := 0
	for _, qr := range q {
		found := false
		for ; j < len(s); j++ {
			if runesEqual(qr, s[j], caseSensitive) {
				indices = append(indices, j)
				j++
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return indices, true
}

func runesEqual(a, b rune, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return unicode.ToLower(a) == unicode.ToLower(b)
}
