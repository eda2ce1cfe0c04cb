package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/query"
)

func mustMatcher(t *testing.T, rawQuery, algorithm string, opts ...Option) *Matcher {
	t.Helper()
	m, err := New(query.Parse(rawQuery), algorithm, opts...)
	require.NoError(t, err)
	return m
}

func matchAll(m *Matcher, lines []string) []*MatchedItem {
	var out []*MatchedItem
	for _, line := range lines {
		if mi := m.Match(item.NewPathItem(line)); mi != nil {
			out = append(out, mi)
		}
	}
	return out
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New(query.Parse("x"), "levenshtein")
	require.Error(t, err)

	var cfgErr *errors.ConfigInvalidError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMatch_PathFuzzy(t *testing.T) {
	lines := []string{
		"crates/filter/src/lib.rs",
		"crates/matcher/src/lib.rs",
		"docs/README.md",
	}
	m := mustMatcher(t, "flib", "fzy")

	matched := matchAll(m, lines)
	// Only the filter path contains an 'f' at all.
	require.Len(t, matched, 1)

	best := matched[0]
	assert.Equal(t, "crates/filter/src/lib.rs", best.Item.RawText())

	// Indices cover f, l, i, b in order.
	raw := []rune(best.Item.RawText())
	var chars []rune
	for _, idx := range best.Indices {
		chars = append(chars, raw[idx])
	}
	assert.Equal(t, "flib", string(chars))
}

func TestMatch_FileNameScope(t *testing.T) {
	lines := []string{
		"crates/filter/src/lib.rs",
		"crates/matcher/src/lib.rs",
		"docs/README.md",
	}
	m := mustMatcher(t, "lib", "fzy", WithScope(item.FileName))

	matched := matchAll(m, lines)
	require.Len(t, matched, 2)

	for _, mi := range matched {
		raw := []rune(mi.Item.RawText())
		// All indices land inside the "lib.rs" basename.
		nameStart := len(raw) - len("lib.rs")
		for _, idx := range mi.Indices {
			assert.GreaterOrEqual(t, idx, nameStart)
		}
	}
}

func TestMatch_ExactModifier(t *testing.T) {
	lines := []string{"pub fn foo()", "fn foo()", "// foo"}
	m := mustMatcher(t, "foo '^pub", "fzy")

	var survivors []string
	for _, line := range lines {
		if mi := m.Match(item.NewPlainItem(line)); mi != nil {
			survivors = append(survivors, line)
		}
	}
	assert.Equal(t, []string{"pub fn foo()"}, survivors)
}

func TestMatch_InverseModifier(t *testing.T) {
	lines := []string{"pub fn foo()", "fn foo()", "// foo"}
	m := mustMatcher(t, "foo !pub", "fzy")

	var survivors []string
	for _, line := range lines {
		if mi := m.Match(item.NewPlainItem(line)); mi != nil {
			survivors = append(survivors, line)
		}
	}
	assert.Equal(t, []string{"fn foo()", "// foo"}, survivors)
}

func TestMatch_WordModifier(t *testing.T) {
	m := mustMatcher(t, `"foo"`, "fzy")

	assert.NotNil(t, m.Match(item.NewPlainItem("call foo here")))
	assert.Nil(t, m.Match(item.NewPlainItem("foobar only")))
}

func TestMatch_EmptyQueryAcceptsEverything(t *testing.T) {
	m := mustMatcher(t, "", "fzy")

	mi := m.Match(item.NewPlainItem("anything at all"))
	require.NotNil(t, mi)
	assert.Equal(t, int64(0), mi.Rank.Score)
	assert.Empty(t, mi.Indices)
}

func TestMatch_AllInverseQueryActsAsFilter(t *testing.T) {
	m := mustMatcher(t, "!test", "fzy")

	assert.Nil(t, m.Match(item.NewPlainItem("foo_test.go")))
	assert.NotNil(t, m.Match(item.NewPlainItem("foo.go")))
}

func TestMatch_IndicesStrictlyIncreasingAndInRange(t *testing.T) {
	m := mustMatcher(t, "foo 'src", "fzy")

	mi := m.Match(item.NewPlainItem("src/foo/bar.go"))
	require.NotNil(t, mi)

	n := len([]rune("src/foo/bar.go"))
	prev := -1
	for _, idx := range mi.Indices {
		assert.Greater(t, idx, prev)
		assert.Less(t, idx, n)
		prev = idx
	}
}

func TestMatch_GrepLineScopeShiftsIndicesBack(t *testing.T) {
	m := mustMatcher(t, "needle", "fzy", WithScope(item.GrepLine))

	raw := "src/main.go:10:5:the needle here"
	mi := m.Match(item.NewGrepItem(raw))
	require.NotNil(t, mi)

	// All indices point at "needle" characters within the raw line, past
	// the path:line:col: prefix.
	runes := []rune(raw)
	for _, idx := range mi.Indices {
		assert.Greater(t, idx, len("src/main.go:10:5:")-1)
		assert.Contains(t, "needle", string(runes[idx]))
	}
}

func TestMatch_BufferLinePostProcessShiftsIndices(t *testing.T) {
	m := mustMatcher(t, "hello", "fzy")

	it := item.NewBufferLineItem(42, "say hello")
	mi := m.Match(it)
	require.NotNil(t, mi)

	// "42 " prefix is 3 characters wide; "hello" starts at raw char 4, so
	// output indices start at 7.
	assert.Equal(t, []int{7, 8, 9, 10, 11}, mi.Indices)
}

func TestMatch_Determinism(t *testing.T) {
	m := mustMatcher(t, "flib 'rs", "fzy")
	it := item.NewPathItem("crates/filter/src/lib.rs")

	a := m.Match(it)
	b := m.Match(it)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.Rank, b.Rank)
	assert.Equal(t, a.Indices, b.Indices)
}

func TestRank_Ordering(t *testing.T) {
	higher := Rank{Score: 10, NegLen: -5}
	lower := Rank{Score: 5, NegLen: -5}
	assert.True(t, lower.Less(higher))

	shorter := Rank{Score: 10, NegLen: -3}
	longer := Rank{Score: 10, NegLen: -8}
	assert.True(t, longer.Less(shorter))

	earlier := Rank{Score: 10, NegLen: -5, NegSeq: -1}
	later := Rank{Score: 10, NegLen: -5, NegSeq: -2}
	assert.True(t, later.Less(earlier))
}
