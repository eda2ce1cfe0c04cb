package config

import (
	"errors"
	"fmt"
	"runtime"

	fferrors "github.com/standardbeagle/flowfilter/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Returns a ConfigInvalidError if validation fails; no resources are
// acquired before this runs, so a failure is always safe to return early.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return fferrors.NewConfigInvalidError("project", cfg.Project.Root, err)
	}

	if err := v.validateMatchConfig(&cfg.Match); err != nil {
		return fferrors.NewConfigInvalidError("match", cfg.Match.Algorithm, err)
	}

	if err := v.validateDisplayConfig(&cfg.Display); err != nil {
		return fferrors.NewConfigInvalidError("display", "", err)
	}

	if err := v.validatePipelineConfig(&cfg.Pipeline); err != nil {
		return fferrors.NewConfigInvalidError("pipeline", "", err)
	}

	if err := v.validateCacheConfig(&cfg.Cache); err != nil {
		return fferrors.NewConfigInvalidError("cache", cfg.Cache.Dir, err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

// validateProjectConfig validates project configuration
func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}

	return nil
}

// validateMatchConfig validates the match algorithm/scope/case selection
func (v *Validator) validateMatchConfig(match *Match) error {
	switch match.CaseMatching {
	case "", "respect", "ignore", "smart":
	default:
		return fmt.Errorf("unknown case_matching %q (want respect, ignore or smart)", match.CaseMatching)
	}

	switch match.Algorithm {
	case "", "fzy", "skim", "substring":
	default:
		return fmt.Errorf("unknown fuzzy_algorithm %q (want fzy, skim or substring)", match.Algorithm)
	}

	switch match.Scope {
	case "", "full", "filename", "tagname", "grepline":
	default:
		return fmt.Errorf("unknown match_scope %q (want full, filename, tagname or grepline)", match.Scope)
	}

	return nil
}

// validateDisplayConfig validates display configuration
func (v *Validator) validateDisplayConfig(display *Display) error {
	switch display.Icon {
	case "", "none", "file", "grep", "projtags", "unknown":
	default:
		return fmt.Errorf("unknown icon kind %q", display.Icon)
	}

	if display.Number < 0 {
		return fmt.Errorf("number cannot be negative, got %d", display.Number)
	}

	if display.Winwidth < 0 {
		return fmt.Errorf("winwidth cannot be negative, got %d", display.Winwidth)
	}

	return nil
}

// validatePipelineConfig validates pipeline configuration
func (v *Validator) validatePipelineConfig(pipeline *Pipeline) error {
	// Threads: 0 means auto-detect (will be set by smart defaults)
	if pipeline.Threads < 0 {
		return fmt.Errorf("threads cannot be negative, got %d", pipeline.Threads)
	}

	if pipeline.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms cannot be negative, got %d", pipeline.DebounceMs)
	}

	if pipeline.ChannelSize < 0 {
		return fmt.Errorf("channel_size cannot be negative, got %d", pipeline.ChannelSize)
	}

	return nil
}

// validateCacheConfig validates cache configuration
func (v *Validator) validateCacheConfig(cache *Cache) error {
	if cache.MaxAgeDays < 0 {
		return fmt.Errorf("max_age_days cannot be negative, got %d", cache.MaxAgeDays)
	}

	return nil
}

// setSmartDefaults applies smart defaults based on system capabilities
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Match.CaseMatching == "" {
		cfg.Match.CaseMatching = "smart"
	}
	if cfg.Match.Algorithm == "" {
		cfg.Match.Algorithm = "fzy"
	}
	if cfg.Match.Scope == "" {
		cfg.Match.Scope = "full"
	}
	if cfg.Display.Icon == "" {
		cfg.Display.Icon = "none"
	}
	if cfg.Display.Number == 0 {
		cfg.Display.Number = DefaultNumber
	}
	if cfg.Display.Winwidth == 0 {
		cfg.Display.Winwidth = DefaultWinwidth
	}

	// Worker count defaults to runtime.NumCPU, the logical CPU count;
	// physical cores are not detected separately. The environment variable
	// wins over both the config value and the auto-detect.
	cfg.Pipeline.Threads = ThreadsFromEnv(cfg.Pipeline.Threads)
	if cfg.Pipeline.Threads == 0 {
		cfg.Pipeline.Threads = max(1, runtime.NumCPU())
	}

	if cfg.Pipeline.DebounceMs == 0 {
		cfg.Pipeline.DebounceMs = DefaultDebounceMs
	}
	if cfg.Pipeline.ChannelSize == 0 {
		cfg.Pipeline.ChannelSize = DefaultChannelSize
	}
	if cfg.Cache.ExecThreshold == 0 {
		cfg.Cache.ExecThreshold = DefaultExecThreshold
	}
	if cfg.Cache.WalkThreshold == 0 {
		cfg.Cache.WalkThreshold = DefaultWalkThreshold
	}
	if cfg.Cache.MaxAgeDays == 0 {
		cfg.Cache.MaxAgeDays = DefaultCacheMaxDays
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
