package modifier

import (
	"strings"

	"github.com/standardbeagle/flowfilter/internal/query"
)

// ExactMatcher evaluates the Exact/PrefixExact/SuffixExact terms of a
// query. Prefix and suffix forms trim leading/trailing whitespace from the
// search text before comparing. A shorter search line earns a small bonus
// (512/len(line)) on top of any indices found; any term miss fails the
// whole match.
type ExactMatcher struct {
	terms []query.Modifier
}

// NewExactMatcher builds an ExactMatcher from a query's modifier terms,
// ignoring any that aren't Exact/PrefixExact/SuffixExact.
func NewExactMatcher(mods []query.Modifier) *ExactMatcher {
	m := &ExactMatcher{}
	for _, mod := range mods {
		switch mod.Kind {
		case query.Exact, query.PrefixExact, query.SuffixExact:
			m.terms = append(m.terms, mod)
		}
	}
	return m
}

// Match reports whether text satisfies every exact term, along with the
// union of matched character indices and the short-line bonus.
func (e *ExactMatcher) Match(text string) (MatchResult, bool) {
	if len(e.terms) == 0 {
		return MatchResult{}, true
	}

	var indices []int
	for _, term := range e.terms {
		start, end, ok := locateExact(text, term)
		if !ok {
			return MatchResult{}, false
		}
		indices = append(indices, byteRangeToRuneIndices(text, start, end)...)
	}

	var bonus int64
	if n := len([]rune(text)); n > 0 {
		bonus = 512 / int64(n)
	}
	return MatchResult{Score: bonus, Indices: indices}, true
}

func locateExact(text string, m query.Modifier) (start, end int, ok bool) {
	switch m.Kind {
	case query.Exact:
		idx := strings.Index(text, m.Text)
		if idx < 0 {
			return 0, 0, false
		}
		return idx, idx + len(m.Text), true

	case query.PrefixExact:
		trimmed := strings.TrimLeft(text, " \t")
		offset := len(text) - len(trimmed)
		if !strings.HasPrefix(trimmed, m.Text) {
			return 0, 0, false
		}
		return offset, offset + len(m.Text), true

	case query.SuffixExact:
		trimmed := strings.TrimRight(text, " \t")
		if !strings.HasSuffix(trimmed, m.Text) {
			return 0, 0, false
		}
		start = len(trimmed) - len(m.Text)
		return start, len(trimmed), true

	default:
		return 0, 0, false
	}
}
