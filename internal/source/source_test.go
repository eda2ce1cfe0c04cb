package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/item"
)

// collect drains a source into a sorted list of raw texts. Safe for
// sources that emit concurrently.
func collect(t *testing.T, src Source) []string {
	t.Helper()

	var mu sync.Mutex
	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		mu.Lock()
		lines = append(lines, it.RawText())
		mu.Unlock()
		return true
	})
	require.NoError(t, err)
	sort.Strings(lines)
	return lines
}

func TestList_EmitsInOrder(t *testing.T) {
	src := NewListLines([]string{"a", "b", "c"})

	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		lines = append(lines, it.RawText())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestList_StopsWhenEmitRefuses(t *testing.T) {
	src := NewListLines([]string{"a", "b", "c"})

	var count int
	err := src.Produce(context.Background(), func(item.Item) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFile_LineNumbersAreOneBased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\nsecond\n"), 0o644))

	src := NewFile(path, NumberedLine)

	var outputs []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		outputs = append(outputs, it.OutputText())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 first", "2 second"}, outputs)
}

func TestFile_MissingFileIsProducerError(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "absent"), nil)

	err := src.Produce(context.Background(), func(item.Item) bool { return true })
	require.Error(t, err)

	var perr *fferrors.ProducerError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "file", perr.Source)
}

func TestFile_LossyDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.txt")
	require.NoError(t, os.WriteFile(path, []byte("ok\nbad\xffbyte\n"), 0o644))

	src := NewFile(path, nil)

	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		lines = append(lines, it.RawText())
		return true
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "ok", lines[0])
	assert.True(t, strings.ContainsRune(lines[1], '�'))
}

func TestStdin_ReadsFromReader(t *testing.T) {
	src := NewStdin(strings.NewReader("x\ny\n"), nil)

	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		lines = append(lines, it.RawText())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, lines)
}

func TestExec_StreamsStdout(t *testing.T) {
	src := NewExec([]string{"sh", "-c", "printf 'one\\ntwo\\n'"}, "", nil)

	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		lines = append(lines, it.RawText())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestExec_NonZeroExitWithStderrIsError(t *testing.T) {
	src := NewExec([]string{"sh", "-c", "echo boom >&2; exit 3"}, "", nil)

	err := src.Produce(context.Background(), func(item.Item) bool { return true })
	require.Error(t, err)

	var perr *fferrors.ProducerError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "boom")
}

func TestExec_NonZeroExitWithoutStderrIsNotError(t *testing.T) {
	src := NewExec([]string{"sh", "-c", "exit 1"}, "", nil)

	err := src.Produce(context.Background(), func(item.Item) bool { return true })
	assert.NoError(t, err)
}

func TestExec_CommandString(t *testing.T) {
	src := NewExec([]string{"rg", "--files"}, "/tmp/repo", nil)
	assert.Equal(t, "rg --files", src.Command())
	assert.Equal(t, "/tmp/repo", src.Cwd())
}

func TestForerunnerExec_ServesFromCacheFile(t *testing.T) {
	cached := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(cached, []byte("from-cache\n"), 0o644))

	// The wrapped command would fail if spawned; the cached payload wins.
	src := NewForerunnerExec(NewExec([]string{"/no/such/binary"}, "", nil), cached)

	var lines []string
	err := src.Produce(context.Background(), func(it item.Item) bool {
		lines = append(lines, it.RawText())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"from-cache"}, lines)
}

func TestForerunnerExec_FallsBackWhenPayloadMissing(t *testing.T) {
	src := NewForerunnerExec(
		NewExec([]string{"sh", "-c", "echo live"}, "", nil),
		filepath.Join(t.TempDir(), "gone"),
	)

	lines := collect(t, src)
	assert.Equal(t, []string{"live"}, lines)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestWalk_EmitsRelativePathsSkipsGit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":         "",
		"src/lib.go":      "",
		".git/config":     "",
		".git/refs/x":     "",
		"docs/readme.md":  "",
		"src/sub/deep.go": "",
	})

	src := NewWalk([]string{root}, WalkConfig{})
	lines := collect(t, src)

	assert.Equal(t, []string{"docs/readme.md", "main.go", "src/lib.go", "src/sub/deep.go"}, lines)
}

func TestWalk_HiddenFilesExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"visible.go":     "",
		".hidden":        "",
		".config/x.toml": "",
	})

	lines := collect(t, NewWalk([]string{root}, WalkConfig{}))
	assert.Equal(t, []string{"visible.go"}, lines)

	lines = collect(t, NewWalk([]string{root}, WalkConfig{Hidden: true}))
	assert.Equal(t, []string{".config/x.toml", ".hidden", "visible.go"}, lines)
}

func TestWalk_IgnoreGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":             "",
		"node_modules/x/y.js": "",
		"debug.log":           "",
	})

	cfg := WalkConfig{Ignore: []string{"**/node_modules/**", "**/*.log"}}
	lines := collect(t, NewWalk([]string{root}, cfg))
	assert.Equal(t, []string{"keep.go"}, lines)
}

func TestWalk_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":        "",
		"target/out.bin": "",
		".gitignore":     "target/\n",
	})

	cfg := WalkConfig{GitIgnore: true}
	lines := collect(t, NewWalk([]string{root}, cfg))
	assert.Equal(t, []string{"keep.go"}, lines)
}

func TestWalk_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.go":      "",
		"a/mid.go":    "",
		"a/b/deep.go": "",
	})

	cfg := WalkConfig{MaxDepth: 2}
	lines := collect(t, NewWalk([]string{root}, cfg))
	assert.Equal(t, []string{"a/mid.go", "top.go"}, lines)
}

func TestWalk_MissingRootIsProducerError(t *testing.T) {
	src := NewWalk([]string{filepath.Join(t.TempDir(), "absent")}, WalkConfig{})

	err := src.Produce(context.Background(), func(item.Item) bool { return true })
	require.Error(t, err)

	var perr *fferrors.ProducerError
	assert.ErrorAs(t, err, &perr)
}
