// Package item defines the candidate data model shared by every stage of
// the filter core: the matcher reads it, the best-K set stores it, and the
// printer renders it.
package item

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// MatchScope selects the portion of an item's text that is handed to the
// fuzzy scorer and the exact/word modifier matchers.
type MatchScope int

const (
	// Full scores the item's entire raw text.
	Full MatchScope = iota
	// FileName scores only the base name of a path-shaped item.
	FileName
	// TagName scores only the tag-name portion of a ctags-style item.
	TagName
	// GrepLine scores only the content portion of a "path:line:col:text" line.
	GrepLine
)

func (s MatchScope) String() string {
	switch s {
	case FileName:
		return "FileName"
	case TagName:
		return "TagName"
	case GrepLine:
		return "GrepLine"
	default:
		return "Full"
	}
}

// IconKind hints which icon family the printer should prepend.
type IconKind int

const (
	NoIcon IconKind = iota
	IconFile
	IconGrep
	IconProjTags
	IconUnknown
)

// grepLinePrefix matches the "path:line:col:" prefix vim-clap's ripgrep
// command emits for a content match (see scoring_line.rs:strip_grep_filepath).
var grepLinePrefix = regexp.MustCompile(`^.*:\d+:\d+:`)

// Item is the capability set every candidate line or structured record
// must implement. Concrete kinds (Path, Grep, Tag, BufferLine, Plain) are
// tagged structs rather than a dynamic trait-object hierarchy, per the
// data-model design note: new kinds are expected to come from within this
// module, not from arbitrary out-of-tree plugins.
type Item interface {
	// RawText is the immutable source line.
	RawText() string

	// MatchText returns the projection of RawText for the given scope and
	// the byte offset of that projection's start within RawText, so that
	// indices produced against the projection can be shifted back.
	MatchText(scope MatchScope) (text string, byteOffset int)

	// BonusText returns the distinct corpus bonus scorers should inspect
	// (e.g. a ctags search pattern), if the item has one.
	BonusText() (text string, ok bool)

	// OutputText is what the renderer shows; defaults to RawText for most
	// kinds but differs for e.g. buffer lines with a line-number prefix.
	OutputText() string

	// Icon returns the icon hint for this item, if any.
	Icon() (IconKind, bool)

	// PostProcess lets an item shift/adjust matched character indices
	// after the matcher has produced them (e.g. by the width of a
	// prepended line-number prefix). Implementations that don't need this
	// return the indices unchanged.
	PostProcess(indices []int) []int

	// TruncationOffset returns the length, in characters, of a prefix of
	// OutputText that the printer must never truncate away (e.g. the
	// "123 " line-number prefix on a buffer line). Zero means no reserved
	// prefix.
	TruncationOffset() int
}

// baseItem implements the parts of Item that are identical across kinds.
type baseItem struct {
	raw     string
	output  string
	icon    IconKind
	hasIcon bool
}

func (b baseItem) RawText() string { return b.raw }

func (b baseItem) OutputText() string {
	if b.output != "" {
		return b.output
	}
	return b.raw
}

func (b baseItem) Icon() (IconKind, bool) { return b.icon, b.hasIcon }

func (b baseItem) PostProcess(indices []int) []int { return indices }

func (b baseItem) TruncationOffset() int { return 0 }

func (b baseItem) BonusText() (string, bool) { return "", false }

// PlainItem is a bare line with no structure, used by List and line-based
// sources that don't know about paths or grep output.
type PlainItem struct {
	baseItem
}

// NewPlainItem creates a PlainItem from a raw line of text.
func NewPlainItem(raw string) *PlainItem {
	return &PlainItem{baseItem: baseItem{raw: raw}}
}

func (p *PlainItem) MatchText(scope MatchScope) (string, int) {
	return p.raw, 0
}

// PathItem is a file-system path, as produced by the directory walker.
type PathItem struct {
	baseItem
}

// NewPathItem creates a PathItem for a (project-relative) path.
func NewPathItem(path string) *PathItem {
	return &PathItem{baseItem: baseItem{raw: path, icon: IconFile, hasIcon: true}}
}

func (p *PathItem) MatchText(scope MatchScope) (string, int) {
	if scope == FileName {
		name := filepath.Base(p.raw)
		offset := len(p.raw) - len(name)
		if offset < 0 {
			offset = 0
		}
		return name, offset
	}
	return p.raw, 0
}

func (p *PathItem) BonusText() (string, bool) { return p.raw, true }

// GrepItem is a single "path:line:col:content" line from a grep-like
// producer.
type GrepItem struct {
	baseItem
}

// NewGrepItem creates a GrepItem from one line of ripgrep-style output.
func NewGrepItem(raw string) *GrepItem {
	return &GrepItem{baseItem: baseItem{raw: raw, icon: IconGrep, hasIcon: true}}
}

func (g *GrepItem) MatchText(scope MatchScope) (string, int) {
	if scope == GrepLine {
		if loc := grepLinePrefix.FindStringIndex(g.raw); loc != nil {
			return g.raw[loc[1]:], loc[1]
		}
	}
	return g.raw, 0
}

// TagItem is a ctags-derived symbol record: a tag name plus the full
// formatted line shown to the user, and a distinct search pattern used by
// bonus scorers (ctags' "excmd" field).
type TagItem struct {
	baseItem
	tagName      string
	tagNameStart int
	pattern      string
}

// NewTagItem creates a TagItem. line is the full rendered text (e.g.
// "main\tmain.go\t/^func main() {$/"), tagName is the symbol name and
// tagNameStart its byte offset within line, pattern is the ctags search
// pattern used as bonus text.
func NewTagItem(line, tagName string, tagNameStart int, pattern string) *TagItem {
	return &TagItem{
		baseItem:     baseItem{raw: line, icon: IconProjTags, hasIcon: true},
		tagName:      tagName,
		tagNameStart: tagNameStart,
		pattern:      pattern,
	}
}

func (t *TagItem) MatchText(scope MatchScope) (string, int) {
	if scope == TagName {
		return t.tagName, t.tagNameStart
	}
	return t.raw, 0
}

func (t *TagItem) BonusText() (string, bool) {
	if t.pattern == "" {
		return "", false
	}
	return t.pattern, true
}

// BufferLineItem is a line from the current editor buffer (the "blines"
// source), displayed with a 1-based line-number prefix that must survive
// truncation and must never be treated as matchable text.
type BufferLineItem struct {
	baseItem
	lineNo      int
	prefixWidth int
}

// NewBufferLineItem creates a BufferLineItem for line number lineNo (1-based).
func NewBufferLineItem(lineNo int, text string) *BufferLineItem {
	prefix := formatLineNoPrefix(lineNo)
	return &BufferLineItem{
		baseItem:    baseItem{raw: text, output: prefix + text},
		lineNo:      lineNo,
		prefixWidth: len([]rune(prefix)),
	}
}

func (b *BufferLineItem) MatchText(scope MatchScope) (string, int) { return b.raw, 0 }

// PostProcess shifts every index by the width of the line-number prefix,
// since scoring ran against raw text but the rendered output is prefixed.
func (b *BufferLineItem) PostProcess(indices []int) []int {
	shifted := make([]int, len(indices))
	for i, idx := range indices {
		shifted[i] = idx + b.prefixWidth
	}
	return shifted
}

func (b *BufferLineItem) TruncationOffset() int { return b.prefixWidth }

func formatLineNoPrefix(lineNo int) string {
	return strconv.Itoa(lineNo) + " "
}
