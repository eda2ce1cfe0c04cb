// Build artifact detection from language-specific build files. Output
// directories found here feed the walker's default ignore list so generated
// trees never reach the matcher.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds language-specific build output directories
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files and extracts
// output directories as glob patterns to exclude (e.g. "**/dist/**").
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string

	patterns = append(patterns, bad.detectJavaScriptOutputs()...)
	patterns = append(patterns, bad.detectRustOutputs()...)
	patterns = append(patterns, bad.detectPythonOutputs()...)

	return patterns
}

// detectJavaScriptOutputs reads package.json and tsconfig.json for outDir
// configuration.
func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	var patterns []string

	packageJSON := filepath.Join(bad.projectRoot, "package.json")
	if data, err := os.ReadFile(packageJSON); err == nil {
		var pkg map[string]interface{}
		if json.Unmarshal(data, &pkg) == nil {
			// Build scripts often carry an explicit --outDir flag.
			if scripts, ok := pkg["scripts"].(map[string]interface{}); ok {
				for _, script := range scripts {
					scriptStr, ok := script.(string)
					if !ok {
						continue
					}
					parts := strings.Fields(scriptStr)
					for i, part := range parts {
						if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
							outDir := strings.Trim(parts[i+1], "\"'")
							patterns = append(patterns, "**/"+outDir+"/**")
						}
					}
				}
			}

			if buildConfig, ok := pkg["build"].(map[string]interface{}); ok {
				if outDir, ok := buildConfig["outDir"].(string); ok {
					patterns = append(patterns, "**/"+outDir+"/**")
				}
			}
		}
	}

	tsconfigJSON := filepath.Join(bad.projectRoot, "tsconfig.json")
	if data, err := os.ReadFile(tsconfigJSON); err == nil {
		var tsconfig map[string]interface{}
		if json.Unmarshal(data, &tsconfig) == nil {
			if compilerOptions, ok := tsconfig["compilerOptions"].(map[string]interface{}); ok {
				if outDir, ok := compilerOptions["outDir"].(string); ok {
					patterns = append(patterns, "**/"+outDir+"/**")
				}
			}
		}
	}

	return patterns
}

// detectRustOutputs reads Cargo.toml for a custom target directory. The
// default target/ is already in the baseline ignore list.
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	var patterns []string

	cargoTOML := filepath.Join(bad.projectRoot, "Cargo.toml")
	if data, err := os.ReadFile(cargoTOML); err == nil {
		var cargo map[string]interface{}
		if toml.Unmarshal(data, &cargo) == nil {
			if profile, ok := cargo["profile"].(map[string]interface{}); ok {
				if release, ok := profile["release"].(map[string]interface{}); ok {
					if targetDir, ok := release["target-dir"].(string); ok {
						patterns = append(patterns, "**/"+targetDir+"/**")
					}
				}
			}
		}
	}

	return patterns
}

// detectPythonOutputs reads pyproject.toml for a poetry build target
// directory.
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	var patterns []string

	pyprojectTOML := filepath.Join(bad.projectRoot, "pyproject.toml")
	if data, err := os.ReadFile(pyprojectTOML); err == nil {
		var pyproject map[string]interface{}
		if toml.Unmarshal(data, &pyproject) == nil {
			if tool, ok := pyproject["tool"].(map[string]interface{}); ok {
				if poetry, ok := tool["poetry"].(map[string]interface{}); ok {
					if build, ok := poetry["build"].(map[string]interface{}); ok {
						if targetDir, ok := build["target-dir"].(string); ok {
							patterns = append(patterns, "**/"+targetDir+"/**")
						}
					}
				}
			}
		}
	}

	return patterns
}

// DeduplicatePatterns removes duplicate exclusion patterns
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
