package modifier

import (
	"regexp"

	"github.com/standardbeagle/flowfilter/internal/query"
)

// WordMatcher evaluates the Word terms of a query, each compiled to a
// word-boundary regex once at query-build time (the same "compile once,
// reuse per item" shape as the gitignore matcher's pattern cache). Earlier
// matches score higher.
type WordMatcher struct {
	terms []*regexp.Regexp
}

// NewWordMatcher builds a WordMatcher from a query's modifier terms,
// ignoring any that aren't Word.
func NewWordMatcher(mods []query.Modifier) *WordMatcher {
	w := &WordMatcher{}
	for _, mod := range mods {
		if mod.Kind == query.Word {
			w.terms = append(w.terms, regexp.MustCompile(`\b`+regexp.QuoteMeta(mod.Text)+`\b`))
		}
	}
	return w
}

// Match reports whether text satisfies every word term.
func (w *WordMatcher) Match(text string) (MatchResult, bool) {
	if len(w.terms) == 0 {
		return MatchResult{}, true
	}

	var indices []int
	var score int64
	for _, re := range w.terms {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return MatchResult{}, false
		}
		indices = append(indices, byteRangeToRuneIndices(text, loc[0], loc[1])...)
		score += 256 / int64(loc[0]+1)
	}
	return MatchResult{Score: score, Indices: indices}, true
}
