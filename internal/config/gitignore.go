package config

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// GitignoreParser parses .gitignore files and answers whether a
// project-relative path is excluded by them. The directory walker consults
// one parser per run; pattern regexes are compiled once and cached.
type GitignoreParser struct {
	patterns []GitignorePattern

	regexCache sync.Map
}

type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool

	// Pre-analyzed form so the hot matching path avoids regex for the
	// common exact/prefix/suffix shapes.
	patternType PatternType
	compiled    *regexp.Regexp
	prefix      string
	suffix      string
}

// PatternType classifies a pattern for fast matching.
type PatternType int

const (
	PatternExact PatternType = iota
	PatternPrefix
	PatternSuffix
	PatternWildcard
	PatternComplex
)

// NewGitignoreParser creates an empty parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{
		patterns: make([]GitignorePattern, 0),
	}
}

// LoadGitignore loads patterns from rootPath/.gitignore. A missing file is
// not an error.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	return gp.LoadFile(filepath.Join(rootPath, ".gitignore"))
}

// LoadFile loads patterns from an arbitrary gitignore-format file, e.g.
// .git/info/exclude or the user's global excludes file. A missing file is
// not an error; patterns accumulate across calls in load order.
func (gp *GitignoreParser) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		gp.patterns = append(gp.patterns, gp.parsePattern(line))
	}

	return scanner.Err()
}

// AddPattern adds a single pattern line to the parser.
func (gp *GitignoreParser) AddPattern(line string) {
	gp.patterns = append(gp.patterns, gp.parsePattern(line))
}

// parsePattern strips the !/trailing-slash/leading-slash modifiers off a
// pattern line and pre-analyzes the remainder for fast matching.
func (gp *GitignoreParser) parsePattern(line string) GitignorePattern {
	pattern := GitignorePattern{}

	if strings.HasPrefix(line, "!") {
		pattern.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		pattern.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		pattern.Absolute = true
		line = line[1:]
	}

	pattern.Pattern = line
	pattern.patternType, pattern.prefix, pattern.suffix, pattern.compiled = gp.analyzePattern(line)

	return pattern
}

// analyzePattern picks the cheapest matching strategy a pattern admits:
// plain string equality, prefix/suffix checks for single-asterisk shapes,
// or a compiled regex for everything else.
func (gp *GitignoreParser) analyzePattern(pattern string) (PatternType, string, string, *regexp.Regexp) {
	if !strings.ContainsAny(pattern, "*?[") {
		return PatternExact, pattern, pattern, nil
	}

	simpleAsterisk := strings.Contains(pattern, "*") &&
		!strings.Contains(pattern, "?") && !strings.Contains(pattern, "[")
	if simpleAsterisk {
		// "*.log" reduces to a suffix check, "test*" to a prefix check.
		if strings.HasPrefix(pattern, "*") && !strings.Contains(pattern[1:], "*") {
			return PatternSuffix, "", pattern[1:], nil
		}
		if strings.HasSuffix(pattern, "*") && !strings.Contains(pattern[:len(pattern)-1], "*") {
			return PatternPrefix, pattern[:len(pattern)-1], "", nil
		}
	}

	return gp.compileAndCachePattern(pattern)
}

// compileAndCachePattern compiles complex patterns to regex and caches them.
func (gp *GitignoreParser) compileAndCachePattern(pattern string) (PatternType, string, string, *regexp.Regexp) {
	regexPattern := globToRegex(pattern)

	if cached, ok := gp.regexCache.Load(regexPattern); ok {
		return PatternComplex, "", "", cached.(*regexp.Regexp)
	}

	compiled, err := regexp.Compile(regexPattern)
	if err != nil {
		// Fall back to filepath.Match at match time.
		return PatternWildcard, "", "", nil
	}

	gp.regexCache.Store(regexPattern, compiled)
	return PatternComplex, "", "", compiled
}

// globToRegex converts a glob pattern to an anchored regex pattern.
func globToRegex(pattern string) string {
	regex := regexp.QuoteMeta(pattern)

	regex = strings.ReplaceAll(regex, `\*`, `.*`)
	regex = strings.ReplaceAll(regex, `\?`, `.`)
	regex = strings.ReplaceAll(regex, `\[`, `[`)
	regex = strings.ReplaceAll(regex, `\]`, `]`)

	return "^" + regex + "$"
}

// ShouldIgnore reports whether path is excluded by the loaded patterns.
// Later patterns win, so a negation after a match un-ignores the path.
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	ignored := false
	for _, pattern := range gp.patterns {
		if gp.matchesPattern(pattern, path, isDir) {
			ignored = !pattern.Negate
		}
	}

	return ignored
}

// matchesPattern checks one pattern against a path.
func (gp *GitignoreParser) matchesPattern(pattern GitignorePattern, path string, isDir bool) bool {
	// Directory-only patterns match the directory itself and everything
	// inside it.
	if pattern.Directory {
		if isDir {
			return gp.matchDirectoryPattern(pattern, path)
		}
		return gp.matchInsideDirectoryPattern(pattern, path)
	}

	if pattern.Absolute {
		// Anchored at the root: exact position only.
		return gp.fastMatchPattern(pattern, path)
	}

	// Relative patterns match the full path or any path-component suffix.
	if gp.fastMatchPattern(pattern, path) {
		return true
	}
	pathParts := strings.Split(path, "/")
	for i := 1; i < len(pathParts); i++ {
		if gp.fastMatchPattern(pattern, strings.Join(pathParts[i:], "/")) {
			return true
		}
	}

	return false
}

// fastMatchPattern dispatches on the pre-analyzed pattern type.
func (gp *GitignoreParser) fastMatchPattern(pattern GitignorePattern, path string) bool {
	switch pattern.patternType {
	case PatternExact:
		return pattern.Pattern == path
	case PatternPrefix:
		return strings.HasPrefix(path, pattern.prefix)
	case PatternSuffix:
		return strings.HasSuffix(path, pattern.suffix)
	case PatternComplex:
		return pattern.compiled.MatchString(path)
	case PatternWildcard:
		matched, _ := filepath.Match(pattern.Pattern, path)
		return matched
	default:
		return pattern.Pattern == path
	}
}

func (gp *GitignoreParser) matchDirectoryPattern(pattern GitignorePattern, path string) bool {
	if gp.fastMatchPattern(pattern, path) {
		return true
	}

	if strings.HasSuffix(pattern.Pattern, "/**") {
		basePattern := strings.TrimSuffix(pattern.Pattern, "/**")
		if path == basePattern || strings.HasPrefix(path, basePattern+"/") {
			return true
		}
	}

	return false
}

func (gp *GitignoreParser) matchInsideDirectoryPattern(pattern GitignorePattern, path string) bool {
	if strings.HasPrefix(path, pattern.Pattern+"/") {
		return true
	}
	return gp.fastMatchPattern(pattern, path)
}

// ExclusionPatterns renders the loaded gitignore patterns as doublestar
// globs suitable for the walker's ignore list. Negation patterns are
// skipped; they cannot be expressed as standalone exclusions.
func (gp *GitignoreParser) ExclusionPatterns() []string {
	var exclusions []string

	for _, pattern := range gp.patterns {
		if pattern.Negate {
			continue
		}
		if glob := toGlobPattern(pattern); glob != "" {
			exclusions = append(exclusions, glob)
		}
	}

	return exclusions
}

// toGlobPattern converts one gitignore pattern to a doublestar glob.
func toGlobPattern(pattern GitignorePattern) string {
	p := pattern.Pattern

	if pattern.Directory {
		if pattern.Absolute {
			return p + "/**"
		}
		return "**/" + p + "/**"
	}

	if pattern.Absolute {
		return p
	}
	return "**/" + p
}
