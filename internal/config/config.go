// Package config loads and validates the filter engine's configuration from
// .flowfilter.kdl files, merging a global base config with a project-level
// one, and enriches the walker's exclusion list from detected build outputs.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Defaults for the tunable knobs of the match/display/pipeline surface.
const (
	DefaultNumber        = 100
	DefaultWinwidth      = 80
	DefaultDebounceMs    = 200
	DefaultChannelSize   = 4096
	DefaultExecThreshold = 100_000
	DefaultWalkThreshold = 30_000
	DefaultCacheMaxDays  = 7
)

// ThreadsEnvVar overrides the worker pool size when set to a positive integer.
const ThreadsEnvVar = "FLOWFILTER_NUM_THREADS"

type Config struct {
	Version  int
	Project  Project
	Match    Match
	Display  Display
	Pipeline Pipeline
	Cache    Cache
	Walk     Walk
	Bonuses  Bonuses
}

type Project struct {
	Root string
	Name string
}

// Match selects the scoring behavior shared by every provider.
type Match struct {
	CaseMatching string // "respect", "ignore", "smart"
	Algorithm    string // "fzy", "skim", "substring"
	Scope        string // "full", "filename", "tagname", "grepline"
}

// Display controls how ranked snapshots are rendered into frames.
type Display struct {
	Icon     string // "none", "file", "grep", "projtags", "unknown"
	Number   int    // K, size of the best set
	Winwidth int    // target display width in columns
}

// Pipeline sizes the producer/worker/consumer machinery.
type Pipeline struct {
	Threads     int // 0 = auto-detect (NumCPU), overridable via FLOWFILTER_NUM_THREADS
	DebounceMs  int // progress frame debounce window
	ChannelSize int // worker->consumer channel bound
}

// Cache configures the on-disk producer-output store.
type Cache struct {
	Dir           string // payload files, one per digest
	DataDir       string // cache.json index location
	ExecThreshold uint64 // min line count before an exec producer's output is persisted
	WalkThreshold uint64 // min line count before a walk producer's output is persisted
	MaxAgeDays    int    // digests older than this are filtered on load
}

// Walk configures the parallel directory walker.
type Walk struct {
	Hidden         bool     // include hidden files
	FollowSymlinks bool
	Parents        bool // read ignore files from parent directories
	Ignore         []string
	GitIgnore      bool
	GitGlobal      bool
	GitExclude     bool
	MaxDepth       int // 0 = unlimited
}

// Bonuses enables the additive score adjustments.
type Bonuses struct {
	FileName    bool
	Language    []string // extensions with keyword-aware nudges enabled
	RecentFiles []string // recently-opened files feeding the recency bonus
}

// Load loads configuration for the given project root: a global base from
// ~/.flowfilter.kdl (if present), overridden by the project's
// .flowfilter.kdl, falling back to defaults when neither exists.
func Load(rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	projectConfig, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if rootDir != "" {
		cwd = rootDir
	}

	cfg := DefaultConfig(cwd)
	cfg.EnrichIgnoreWithBuildArtifacts()
	return cfg, nil
}

// DefaultConfig returns the built-in configuration rooted at root.
func DefaultConfig(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Match: Match{
			CaseMatching: "smart",
			Algorithm:    "fzy",
			Scope:        "full",
		},
		Display: Display{
			Icon:     "none",
			Number:   DefaultNumber,
			Winwidth: DefaultWinwidth,
		},
		Pipeline: Pipeline{
			Threads:     0, // auto-detect
			DebounceMs:  DefaultDebounceMs,
			ChannelSize: DefaultChannelSize,
		},
		Cache: Cache{
			Dir:           defaultCacheDir(),
			DataDir:       defaultDataDir(),
			ExecThreshold: DefaultExecThreshold,
			WalkThreshold: DefaultWalkThreshold,
			MaxAgeDays:    DefaultCacheMaxDays,
		},
		Walk: Walk{
			Hidden:         false,
			FollowSymlinks: false,
			Parents:        true,
			Ignore:         defaultWalkIgnore(),
			GitIgnore:      true,
			GitGlobal:      true,
			GitExclude:     true,
			MaxDepth:       0,
		},
		Bonuses: Bonuses{FileName: true},
	}
}

// ThreadsFromEnv resolves the configured worker count against the
// FLOWFILTER_NUM_THREADS environment variable: the env var wins when it
// parses to a positive integer, otherwise the config value is returned.
func ThreadsFromEnv(configured int) int {
	if v := os.Getenv(ThreadsEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return configured
}

// mergeConfigs merges a base config with a project config. Project settings
// take precedence, but base walk ignores are preserved (deduplicated).
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Walk.Ignore) > 0 {
		combined := append(append([]string{}, base.Walk.Ignore...), project.Walk.Ignore...)
		merged.Walk.Ignore = DeduplicatePatterns(combined)
	}

	if len(project.Bonuses.RecentFiles) == 0 && len(base.Bonuses.RecentFiles) > 0 {
		merged.Bonuses.RecentFiles = base.Bonuses.RecentFiles
	}

	return &merged
}

// EnrichIgnoreWithBuildArtifacts detects build output directories from
// language build files in the project root and appends them to the walker's
// ignore list.
func (c *Config) EnrichIgnoreWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detected := detector.DetectOutputDirectories()
	if len(detected) > 0 {
		c.Walk.Ignore = DeduplicatePatterns(append(c.Walk.Ignore, detected...))
	}
}

// defaultWalkIgnore is the baseline exclusion set for the directory walker.
// The .git directory is skipped unconditionally by the walker itself and is
// not part of this list.
func defaultWalkIgnore() []string {
	return []string{
		"**/node_modules/**",
		"**/target/**",
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/__pycache__/**",
		"**/*.min.js",
		"**/*.min.css",
		"**/*.swp",
		"**/*~",
		"**/*.log",
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "flowfilter")
	}
	return filepath.Join(os.TempDir(), "flowfilter-cache")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "flowfilter")
	}
	return filepath.Join(os.TempDir(), "flowfilter-data")
}
