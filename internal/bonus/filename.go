package bonus

import (
	"strings"

	"github.com/standardbeagle/flowfilter/internal/item"
)

// FileName scales the base score by how much of the match landed in the
// final path segment: base * (matched indices in basename) / len(basename).
// Items whose raw text has no path separator get no adjustment.
type FileName struct{}

// NewFileName creates the filename-emphasis bonus.
func NewFileName() FileName { return FileName{} }

func (FileName) Apply(it item.Item, base int64, indices []int) int64 {
	raw := it.RawText()

	sep := strings.LastIndexByte(raw, '/')
	if sep < 0 {
		return 0
	}

	// Character offset of the basename start; indices are character
	// positions, so the byte offset of the separator must be converted.
	nameStart := len([]rune(raw[:sep+1]))
	nameLen := len([]rune(raw)) - nameStart
	if nameLen <= 0 {
		return 0
	}

	hits := 0
	for _, idx := range indices {
		if idx >= nameStart {
			hits++
		}
	}

	return base * int64(hits) / int64(nameLen)
}
