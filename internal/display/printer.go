// Package display renders ranked snapshots into frames the editor can
// show: long lines are truncated around their matched positions, indices
// are remapped, an optional icon is prepended, and character indices are
// converted to byte offsets as the final step.
package display

import (
	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/matcher"
)

// marker is the elision marker inserted where a line was cut.
const marker = ".."

// iconWidth is the character width of a prepended icon (glyph + space).
const iconWidth = 2

// DisplayFrame is one rendered snapshot. Indices are byte offsets into the
// UTF-8 encoded lines; TruncatedMap maps a line index to the original
// (untruncated) text so the UI can still open the full target.
type DisplayFrame struct {
	Lines        []string       `json:"lines"`
	Indices      [][]int        `json:"indices"`
	TruncatedMap map[int]string `json:"truncated_map"`
	IconAdded    bool           `json:"icon_added"`
}

// Options configures a Printer.
type Options struct {
	Winwidth int           // target display width in columns
	Icon     item.IconKind // NoIcon disables icons entirely
}

// Printer renders snapshots at a fixed width and icon policy.
type Printer struct {
	options Options
}

// NewPrinter creates a printer. A non-positive width falls back to 80.
func NewPrinter(options Options) *Printer {
	if options.Winwidth <= 0 {
		options.Winwidth = 80
	}
	return &Printer{options: options}
}

// Render produces a frame from a rank-ordered snapshot.
func (p *Printer) Render(snapshot []*matcher.MatchedItem) DisplayFrame {
	frame := DisplayFrame{
		Lines:        make([]string, 0, len(snapshot)),
		Indices:      make([][]int, 0, len(snapshot)),
		TruncatedMap: map[int]string{},
	}

	for i, mi := range snapshot {
		line := mi.Item.OutputText()
		indices := mi.Indices

		truncated, newIndices, wasCut := truncate(line, indices, p.options.Winwidth, mi.Item.TruncationOffset())
		if wasCut {
			frame.TruncatedMap[i] = line
			line = truncated
			indices = newIndices
		}

		if p.options.Icon != item.NoIcon {
			kind := p.options.Icon
			if hint, ok := mi.Item.Icon(); ok {
				kind = hint
			}
			line = iconFor(kind, mi.Item.RawText()) + line
			indices = shiftIndices(indices, iconWidth)
			frame.IconAdded = true
		}

		frame.Lines = append(frame.Lines, line)
		frame.Indices = append(frame.Indices, charToByteIndices(line, indices))
	}

	return frame
}

// truncate fits line into width columns while keeping the last matched
// character visible and preserving the reserved prefix of length reserved
// characters. Returns the (possibly shortened) line, the surviving indices
// remapped into it, and whether anything was cut.
func truncate(line string, indices []int, width, reserved int) (string, []int, bool) {
	runes := []rune(line)
	length := len(runes)
	if length <= width {
		return line, indices, false
	}

	lastIdx := -1
	if len(indices) > 0 {
		lastIdx = indices[len(indices)-1]
	}

	// Right truncation is enough when the match already sits inside the
	// window (or there is no match at all).
	if lastIdx < width-len(marker) {
		keep := width - len(marker)
		out := string(runes[:keep]) + marker
		return out, filterShift(indices, 0, keep, 0), true
	}

	if reserved > width/2 {
		// A reserved prefix that eats most of the window leaves nothing
		// useful to show; fall back to plain right truncation.
		keep := width - len(marker)
		return string(runes[:keep]) + marker, filterShift(indices, 0, keep, 0), true
	}

	prefix := string(runes[:reserved])

	// Left truncation: show the tail that ends at the line end if the last
	// match lives there, otherwise cut on both sides around the match.
	avail := width - reserved - len(marker)
	start := length - avail
	if lastIdx >= start {
		out := prefix + marker + string(runes[start:])
		shift := reserved + len(marker) - start
		kept := filterShift(indices, start, length, shift)
		kept = append(filterShift(indices, 0, reserved, 0), kept...)
		return out, kept, true
	}

	// Middle match: leave a little context to the right of the last match
	// and elide both ends.
	availMid := width - reserved - 2*len(marker)
	end := min(length, lastIdx+3)
	start = end - availMid
	out := prefix + marker + string(runes[start:end]) + marker
	shift := reserved + len(marker) - start
	kept := filterShift(indices, start, end, shift)
	kept = append(filterShift(indices, 0, reserved, 0), kept...)
	return out, kept, true
}

// filterShift keeps indices in [lo, hi) and shifts them by delta.
func filterShift(indices []int, lo, hi, delta int) []int {
	var out []int
	for _, idx := range indices {
		if idx >= lo && idx < hi {
			out = append(out, idx+delta)
		}
	}
	return out
}

func shiftIndices(indices []int, delta int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = idx + delta
	}
	return out
}

// charToByteIndices converts character indices into byte offsets of the
// UTF-8 encoding of line. This is the single place the conversion happens;
// everything upstream works in character positions.
func charToByteIndices(line string, indices []int) []int {
	if len(indices) == 0 {
		return []int{}
	}

	byteOf := make([]int, 0, len(line))
	for byteIdx := range line {
		byteOf = append(byteOf, byteIdx)
	}

	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(byteOf) {
			out = append(out, byteOf[idx])
		}
	}
	return out
}
