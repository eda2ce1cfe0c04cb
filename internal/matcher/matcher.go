// Package matcher composes the query's fuzzy algorithm, modifier matchers
// and bonus scorers into a single item-level match function. A Matcher is
// immutable after construction and safely shared across workers.
package matcher

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/flowfilter/internal/bonus"
	"github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/fuzzy"
	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/modifier"
	"github.com/standardbeagle/flowfilter/internal/query"
)

// Rank orders matched items: primary score descending, then shorter raw
// text first, then stable by arrival sequence.
type Rank struct {
	Score int64
	// NegLen is the negated character length of the raw text.
	NegLen int64
	// NegSeq is the negated insertion sequence number, assigned by the
	// pipeline consumer so earlier arrivals win ties.
	NegSeq int64
}

// Less reports whether r ranks strictly below other.
func (r Rank) Less(other Rank) bool {
	if r.Score != other.Score {
		return r.Score < other.Score
	}
	if r.NegLen != other.NegLen {
		return r.NegLen < other.NegLen
	}
	return r.NegSeq < other.NegSeq
}

// MatchedItem is an item that passed every configured matcher stage,
// carrying its rank and matched character indices into the item's output
// text (the raw-text indices after the item's PostProcess shift).
type MatchedItem struct {
	Item    item.Item
	Rank    Rank
	Indices []int
}

// Option configures a Matcher under construction.
type Option func(*Matcher)

// WithCaseMatching sets the case policy (default Smart).
func WithCaseMatching(c modifier.CaseMatching) Option {
	return func(m *Matcher) { m.caseMatching = c }
}

// WithScope sets the match-scope projection (default Full).
func WithScope(scope item.MatchScope) Option {
	return func(m *Matcher) { m.scope = scope }
}

// WithBonuses sets the bonus scorers applied on top of the base score.
func WithBonuses(bonuses ...bonus.Bonus) Option {
	return func(m *Matcher) { m.bonuses = bonuses }
}

// Matcher is the per-query match function over items.
type Matcher struct {
	algo         fuzzy.Algorithm
	fuzzyText    string
	inverse      *modifier.InverseMatcher
	exact        *modifier.ExactMatcher
	word         *modifier.WordMatcher
	bonuses      []bonus.Bonus
	scope        item.MatchScope
	caseMatching modifier.CaseMatching
}

// New builds a Matcher for a parsed query. algorithm is one of "fzy",
// "skim", "substring"; an unknown name is a ConfigInvalid error.
func New(q query.Query, algorithm string, opts ...Option) (*Matcher, error) {
	algo, err := algorithmByName(algorithm)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		algo:         algo,
		fuzzyText:    q.FuzzyText,
		inverse:      modifier.NewInverseMatcher(q.Modifiers),
		exact:        modifier.NewExactMatcher(q.Modifiers),
		word:         modifier.NewWordMatcher(q.Modifiers),
		scope:        item.Full,
		caseMatching: modifier.Smart,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func algorithmByName(name string) (fuzzy.Algorithm, error) {
	switch name {
	case "", "fzy":
		return fuzzy.Fzy{}, nil
	case "skim":
		return fuzzy.Skim{}, nil
	case "substring":
		return fuzzy.Substring{}, nil
	default:
		return nil, errors.NewConfigInvalidError("fuzzy_algorithm", name,
			fmt.Errorf("unknown algorithm"))
	}
}

// Match runs the full stage order over one item: inverse rejection, exact
// terms, word terms, the fuzzy algorithm, then bonuses. Returns nil when
// the item does not match. For identical inputs the result is identical.
func (m *Matcher) Match(it item.Item) *MatchedItem {
	text, offset := it.MatchText(m.scope)

	if m.inverse.Reject(text) {
		return nil
	}

	exactRes, ok := m.exact.Match(text)
	if !ok {
		return nil
	}

	wordRes, ok := m.word.Match(text)
	if !ok {
		return nil
	}

	score := exactRes.Score + wordRes.Score
	indices := make([]int, 0, len(exactRes.Indices)+len(wordRes.Indices))
	charOffset := len([]rune(it.RawText()[:offset]))
	indices = appendShifted(indices, exactRes.Indices, charOffset)
	indices = appendShifted(indices, wordRes.Indices, charOffset)

	if m.fuzzyText != "" {
		fuzzyScore, fuzzyIndices, matched := m.algo.Score(m.caseFolded(m.fuzzyText), text)
		if !matched {
			return nil
		}
		score += fuzzyScore
		indices = appendShifted(indices, fuzzyIndices, charOffset)
	}

	sortDedup(&indices)

	score += bonus.Sum(m.bonuses, it, score, indices)
	indices = it.PostProcess(indices)

	return &MatchedItem{
		Item: it,
		Rank: Rank{
			Score:  score,
			NegLen: -int64(len([]rune(it.RawText()))),
		},
		Indices: indices,
	}
}

// caseFolded lowers the query when the case policy resolves to insensitive
// matching; the fuzzy scorers themselves compare fold-insensitively, and
// both Respect and Smart leave the query untouched, so Respect behaves like
// Smart (skim's own uppercase detection) and does not force case-sensitive
// matching.
func (m *Matcher) caseFolded(q string) string {
	// The individual algorithms implement smart-case internally; the
	// policy only needs to be forced for Ignore, where an uppercase query
	// must still match insensitively. Fzy and Substring always fold, so
	// only Skim's smart-case needs neutralizing.
	if m.caseMatching == modifier.Ignore {
		return lowerASCII(q)
	}
	return q
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

func appendShifted(dst, src []int, offset int) []int {
	for _, idx := range src {
		dst = append(dst, idx+offset)
	}
	return dst
}

// sortDedup sorts indices ascending and removes duplicates in place.
func sortDedup(indices *[]int) {
	s := *indices
	if len(s) < 2 {
		return
	}
	sort.Ints(s)
	out := s[:1]
	for _, idx := range s[1:] {
		if idx != out[len(out)-1] {
			out = append(out, idx)
		}
	}
	*indices = out
}
