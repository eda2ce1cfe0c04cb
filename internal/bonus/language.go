package bonus

import (
	"strings"

	"github.com/standardbeagle/flowfilter/internal/item"
)

// languageRule holds the keyword nudges for one file extension. Declaration
// keywords earn a fraction of the base score, binding keywords a smaller
// one, and comment-leading lines a negative fraction.
type languageRule struct {
	declarations    []string // prefix match, +base/3
	bindings        []string // exact match, +base/6
	commentPrefixes []string // prefix match, -base/5
}

var languageRules = map[string]languageRule{
	"rs": {
		declarations:    []string{"pub", "fn", "impl", "use"},
		bindings:        []string{"let"},
		commentPrefixes: []string{"//"},
	},
	"go": {
		declarations:    []string{"func", "type"},
		bindings:        []string{"var", "const"},
		commentPrefixes: []string{"//"},
	},
	"vim": {
		declarations:    []string{"function"},
		bindings:        []string{"let"},
		commentPrefixes: []string{"\""},
	},
	"py": {
		declarations:    []string{"def", "class"},
		bindings:        []string{},
		commentPrefixes: []string{"#"},
	},
}

// Language nudges lines that look like declarations in a known language up
// and comment lines down. At most the first three whitespace-separated
// tokens are inspected, tolerating a line-number or visibility-modifier
// prefix before the keyword.
type Language struct {
	rule languageRule
	ok   bool
}

// NewLanguage creates the keyword bonus for a file extension; unknown
// extensions yield a no-op bonus.
func NewLanguage(ext string) Language {
	rule, ok := languageRules[strings.ToLower(ext)]
	return Language{rule: rule, ok: ok}
}

func (l Language) Apply(it item.Item, base int64, _ []int) int64 {
	if !l.ok {
		return 0
	}

	tokens := strings.Fields(strings.TrimSpace(it.RawText()))
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}

	for _, tok := range tokens {
		if score, decided := l.rule.scoreToken(tok, base); decided {
			return score
		}
	}
	return 0
}

func (r languageRule) scoreToken(tok string, base int64) (int64, bool) {
	for _, prefix := range r.commentPrefixes {
		if strings.HasPrefix(tok, prefix) {
			return -(base / 5), true
		}
	}
	for _, kw := range r.declarations {
		if strings.HasPrefix(tok, kw) {
			return base / 3, true
		}
	}
	for _, kw := range r.bindings {
		if tok == kw {
			return base / 6, true
		}
	}
	return 0, false
}
