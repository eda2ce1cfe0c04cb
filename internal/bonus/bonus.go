// Package bonus implements the additive score adjustments applied after the
// base fuzzy score is known: filename emphasis, language-keyword nudges, and
// a recently-opened-files boost.
package bonus

import (
	"github.com/standardbeagle/flowfilter/internal/item"
)

// longLineGuard skips bonus computation for very long lines; scanning a
// generated or minified line for keyword/basename structure isn't worth the
// cost and skews scores.
const longLineGuard = 1024

// Bonus computes one additive score increment for a matched item. base is
// the combined score of the fuzzy/exact/word stages, indices the matched
// character positions against the raw text.
type Bonus interface {
	Apply(it item.Item, base int64, indices []int) int64
}

// Sum applies every bonus to the item and returns the total increment. The
// long-line guard is enforced here once for all bonuses.
func Sum(bonuses []Bonus, it item.Item, base int64, indices []int) int64 {
	if len(bonuses) == 0 {
		return 0
	}

	text := it.RawText()
	if bt, ok := it.BonusText(); ok {
		text = bt
	}
	if len([]rune(text)) > longLineGuard {
		return 0
	}

	var total int64
	for _, b := range bonuses {
		total += b.Apply(it, base, indices)
	}
	return total
}
