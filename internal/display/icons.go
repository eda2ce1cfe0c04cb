package display

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/flowfilter/internal/item"
)

// Per-extension file glyphs (nerd-font codepoints). Anything unlisted gets
// the generic file glyph.
var extIcons = map[string]rune{
	"go":   '',
	"rs":   '',
	"py":   '',
	"js":   '',
	"ts":   '',
	"vim":  '',
	"md":   '',
	"json": '',
	"toml": '',
	"kdl":  '',
	"yml":  '',
	"yaml": '',
	"lock": '',
	"txt":  '',
}

const (
	defaultFileIcon = ''
	grepIcon        = ''
	tagsIcon        = ''
	unknownIcon     = ''
)

// iconFor picks the 2-character icon prefix (glyph plus a space) for a
// rendered line.
func iconFor(kind item.IconKind, line string) string {
	var glyph rune
	switch kind {
	case item.IconFile:
		glyph = fileGlyph(line)
	case item.IconGrep:
		glyph = grepIcon
	case item.IconProjTags:
		glyph = tagsIcon
	default:
		glyph = unknownIcon
	}
	return string(glyph) + " "
}

func fileGlyph(path string) rune {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if glyph, ok := extIcons[strings.ToLower(ext)]; ok {
		return glyph
	}
	return defaultFileIcon
}
