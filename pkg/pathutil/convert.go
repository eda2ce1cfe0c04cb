// Package pathutil converts between absolute and relative paths. Producers
// emit project-relative paths for readability; everything internal that
// touches the filesystem works on absolute paths.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative, or the path lies outside the root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	// A ".." prefix means the file is outside the root; the absolute form
	// is clearer there.
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToAbsolute resolves a possibly-relative path against a root directory.
// Absolute paths are cleaned and returned unchanged otherwise.
func ToAbsolute(path, rootDir string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if rootDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(rootDir, path)
}
