package modifier

import (
	"strings"

	"github.com/standardbeagle/flowfilter/internal/query"
)

// InverseMatcher evaluates the InverseExact/InversePrefixExact/
// InverseSuffixExact terms of a query. It is checked before any scorer
// runs: a line rejected here never reaches the fuzzy/word/bonus stages.
type InverseMatcher struct {
	terms []query.Modifier
}

// NewInverseMatcher builds an InverseMatcher from a query's modifier terms,
// ignoring any that aren't one of the three inverse kinds.
func NewInverseMatcher(mods []query.Modifier) *InverseMatcher {
	m := &InverseMatcher{}
	for _, mod := range mods {
		if mod.Kind.IsInverse() {
			m.terms = append(m.terms, mod)
		}
	}
	return m
}

// Reject reports whether text must be excluded: true if any inverse term
// matches. It never contributes indices or score.
func (inv *InverseMatcher) Reject(text string) bool {
	for _, term := range inv.terms {
		if inverseHits(text, term) {
			return true
		}
	}
	return false
}

func inverseHits(text string, m query.Modifier) bool {
	switch m.Kind {
	case query.InverseExact:
		return strings.Contains(text, m.Text)
	case query.InversePrefixExact:
		trimmed := strings.TrimLeft(text, " \t")
		return strings.HasPrefix(trimmed, m.Text)
	case query.InverseSuffixExact:
		trimmed := strings.TrimRight(text, " \t")
		return strings.HasSuffix(trimmed, m.Text)
	default:
		return false
	}
}
