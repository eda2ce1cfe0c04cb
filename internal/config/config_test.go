package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/standardbeagle/flowfilter/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/project")

	assert.Equal(t, "/tmp/project", cfg.Project.Root)
	assert.Equal(t, "smart", cfg.Match.CaseMatching)
	assert.Equal(t, "fzy", cfg.Match.Algorithm)
	assert.Equal(t, "full", cfg.Match.Scope)
	assert.Equal(t, DefaultNumber, cfg.Display.Number)
	assert.Equal(t, DefaultWinwidth, cfg.Display.Winwidth)
	assert.Equal(t, DefaultDebounceMs, cfg.Pipeline.DebounceMs)
	assert.True(t, cfg.Walk.GitIgnore)
}

func TestParseKDL_MatchAndDisplay(t *testing.T) {
	content := `
match {
    case_matching "ignore"
    fuzzy_algorithm "skim"
    match_scope "filename"
}
display {
    icon "file"
    number 200
    winwidth 120
}
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)

	assert.Equal(t, "ignore", cfg.Match.CaseMatching)
	assert.Equal(t, "skim", cfg.Match.Algorithm)
	assert.Equal(t, "filename", cfg.Match.Scope)
	assert.Equal(t, "file", cfg.Display.Icon)
	assert.Equal(t, 200, cfg.Display.Number)
	assert.Equal(t, 120, cfg.Display.Winwidth)
}

func TestParseKDL_PipelineCacheWalk(t *testing.T) {
	content := `
pipeline {
    threads 8
    debounce_ms 100
}
cache {
    exec_threshold "100K"
    walk_threshold 30000
    max_age_days 3
}
walk {
    hidden true
    max_depth 5
    ignore "**/generated/**" "**/*.pb.go"
}
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.Threads)
	assert.Equal(t, 100, cfg.Pipeline.DebounceMs)
	assert.Equal(t, uint64(100_000), cfg.Cache.ExecThreshold)
	assert.Equal(t, uint64(30_000), cfg.Cache.WalkThreshold)
	assert.Equal(t, 3, cfg.Cache.MaxAgeDays)
	assert.True(t, cfg.Walk.Hidden)
	assert.Equal(t, 5, cfg.Walk.MaxDepth)
	assert.Equal(t, []string{"**/generated/**", "**/*.pb.go"}, cfg.Walk.Ignore)
}

func TestParseKDL_Bonuses(t *testing.T) {
	content := `
bonuses {
    file_name true
    language "go" "rs"
    recent_files "/home/u/a.go" "/home/u/b.go"
}
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)

	assert.True(t, cfg.Bonuses.FileName)
	assert.Equal(t, []string{"go", "rs"}, cfg.Bonuses.Language)
	assert.Equal(t, []string{"/home/u/a.go", "/home/u/b.go"}, cfg.Bonuses.RecentFiles)
}

func TestParseKDL_EmptyIsDefaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	assert.Equal(t, "fzy", cfg.Match.Algorithm)
}

func TestParseKDL_InvalidSyntax(t *testing.T) {
	_, err := parseKDL(`match { case_matching "unterminated`)
	assert.Error(t, err)
}

func TestLoadKDL_MissingFileReturnsNil(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDL_RelativeRootResolvedAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	content := "project {\n    root \".\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".flowfilter.kdl"), []byte(content), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Clean(dir), cfg.Project.Root)
}

func TestValidator_RejectsUnknownAlgorithm(t *testing.T) {
	cfg := DefaultConfig("/tmp")
	cfg.Match.Algorithm = "levenshtein"

	err := ValidateConfig(cfg)
	require.Error(t, err)

	var cfgErr *fferrors.ConfigInvalidError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "match", cfgErr.Field)
}

func TestValidator_RejectsNegativeWidth(t *testing.T) {
	cfg := DefaultConfig("/tmp")
	cfg.Display.Winwidth = -1

	assert.Error(t, ValidateConfig(cfg))
}

func TestValidator_SmartDefaultsFillZeroValues(t *testing.T) {
	cfg := &Config{Project: Project{Root: "/tmp"}}

	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, "smart", cfg.Match.CaseMatching)
	assert.Equal(t, "fzy", cfg.Match.Algorithm)
	assert.GreaterOrEqual(t, cfg.Pipeline.Threads, 1)
	assert.Equal(t, DefaultDebounceMs, cfg.Pipeline.DebounceMs)
	assert.Equal(t, uint64(DefaultExecThreshold), cfg.Cache.ExecThreshold)
}

func TestThreadsFromEnv(t *testing.T) {
	t.Setenv(ThreadsEnvVar, "6")
	assert.Equal(t, 6, ThreadsFromEnv(2))

	t.Setenv(ThreadsEnvVar, "not-a-number")
	assert.Equal(t, 2, ThreadsFromEnv(2))

	t.Setenv(ThreadsEnvVar, "")
	assert.Equal(t, 2, ThreadsFromEnv(2))
}

func TestMergeConfigs_ProjectWinsIgnoresCombine(t *testing.T) {
	base := DefaultConfig("/base")
	base.Walk.Ignore = []string{"**/a/**"}
	base.Display.Number = 150

	project := DefaultConfig("/proj")
	project.Walk.Ignore = []string{"**/b/**"}
	project.Display.Number = 50

	merged := mergeConfigs(base, project)

	assert.Equal(t, "/proj", merged.Project.Root)
	assert.Equal(t, 50, merged.Display.Number)
	assert.Contains(t, merged.Walk.Ignore, "**/a/**")
	assert.Contains(t, merged.Walk.Ignore, "**/b/**")
}
