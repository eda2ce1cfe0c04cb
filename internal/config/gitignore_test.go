package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitignoreParser_BasicPatterns(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		isDir    bool
		expected bool
	}{
		{"simple file match", "README.md", "README.md", false, true},
		{"simple file no match", "README.md", "main.go", false, false},
		{"directory pattern matches directory", "node_modules/", "node_modules", true, true},
		{"directory pattern matches files inside", "node_modules/", "node_modules/react/index.js", false, true},
		{"directory pattern no match outside", "node_modules/", "src/main.go", false, false},
		{"absolute pattern matches at root", "/build", "build", true, true},
		{"absolute pattern does not match nested", "/build", "src/build", true, false},
		{"relative pattern matches any component", "temp", "src/temp", true, true},
		{"suffix wildcard", "*.log", "debug.log", false, true},
		{"suffix wildcard nested", "*.log", "logs/debug.log", false, true},
		{"prefix wildcard", "test*", "testdata", false, true},
		{"question mark wildcard", "file?.txt", "file1.txt", false, true},
		{"question mark wildcard no match", "file?.txt", "file12.txt", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewGitignoreParser()
			parser.AddPattern(tt.pattern)
			assert.Equal(t, tt.expected, parser.ShouldIgnore(tt.path, tt.isDir))
		})
	}
}

func TestGitignoreParser_NegationPriority(t *testing.T) {
	parser := NewGitignoreParser()
	parser.AddPattern("*.log")
	parser.AddPattern("!important.log")

	assert.True(t, parser.ShouldIgnore("debug.log", false))
	assert.False(t, parser.ShouldIgnore("important.log", false))
}

func TestGitignoreParser_NegationOrderMatters(t *testing.T) {
	// A negation before the ignore pattern is overridden by it.
	parser := NewGitignoreParser()
	parser.AddPattern("!debug.log")
	parser.AddPattern("*.log")

	assert.True(t, parser.ShouldIgnore("debug.log", false))
}

func TestGitignoreParser_CommentsAndBlanksSkipped(t *testing.T) {
	dir := t.TempDir()
	content := "# build output\n\ntarget/\n*.tmp\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644))

	parser := NewGitignoreParser()
	require.NoError(t, parser.LoadGitignore(dir))

	assert.True(t, parser.ShouldIgnore("target/debug/main", false))
	assert.True(t, parser.ShouldIgnore("scratch.tmp", false))
	assert.False(t, parser.ShouldIgnore("# build output", false))
	assert.False(t, parser.ShouldIgnore("src/main.go", false))
}

func TestGitignoreParser_LoadFileMissingIsNoError(t *testing.T) {
	parser := NewGitignoreParser()
	assert.NoError(t, parser.LoadFile(filepath.Join(t.TempDir(), "no-such-file")))
	assert.False(t, parser.ShouldIgnore("anything", false))
}

func TestGitignoreParser_LoadFileAccumulates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("*.log\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("vendor/\n"), 0o644))

	parser := NewGitignoreParser()
	require.NoError(t, parser.LoadFile(filepath.Join(dir, "a")))
	require.NoError(t, parser.LoadFile(filepath.Join(dir, "b")))

	assert.True(t, parser.ShouldIgnore("x.log", false))
	assert.True(t, parser.ShouldIgnore("vendor/pkg/mod.go", false))
}

func TestGitignoreParser_ExclusionPatterns(t *testing.T) {
	parser := NewGitignoreParser()
	parser.AddPattern("node_modules/")
	parser.AddPattern("/dist/")
	parser.AddPattern("*.log")
	parser.AddPattern("!keep.log")

	exclusions := parser.ExclusionPatterns()

	assert.Contains(t, exclusions, "**/node_modules/**")
	assert.Contains(t, exclusions, "dist/**")
	assert.Contains(t, exclusions, "**/*.log")
	// Negations are dropped.
	assert.Len(t, exclusions, 3)
}

func TestGitignoreParser_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		expected bool
	}{
		{"double star directory", []string{"logs/**"}, "logs/2024/app.log", false, true},
		{"nested relative match", []string{"cache"}, "a/b/cache", true, true},
		{"pattern with dot", []string{".DS_Store"}, "src/.DS_Store", false, true},
		{"no patterns", nil, "anything", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewGitignoreParser()
			for _, p := range tt.patterns {
				parser.AddPattern(p)
			}
			assert.Equal(t, tt.expected, parser.ShouldIgnore(tt.path, tt.isDir))
		})
	}
}

func BenchmarkGitignoreLookup(b *testing.B) {
	parser := NewGitignoreParser()
	for _, p := range []string{"node_modules/", "*.log", "dist/", "build/**", "test*"} {
		parser.AddPattern(p)
	}

	paths := []string{
		"src/main.go",
		"node_modules/react/index.js",
		"logs/debug.log",
		"deep/nested/path/to/file.txt",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parser.ShouldIgnore(paths[i%len(paths)], false)
	}
}
