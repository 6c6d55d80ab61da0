// Package config holds the invocation-scoped redaction settings.
// A Config is loaded once and passed explicitly to every component;
// there is no package-level mutable state.
package config

import (
	"fmt"
	"strings"
)

// Config is the full settings surface of the redactor.
type Config struct {
	// Placeholder replaces matched names in DOCX/PPTX output.
	// PDF redaction is a visual blackout and does not render it.
	Placeholder string `mapstructure:"placeholder"`

	// PreserveCase adapts the placeholder casing to the matched text
	// (all-caps source yields an all-caps placeholder, and so on).
	PreserveCase bool `mapstructure:"preserve_case"`

	// Names is an optional baked-in name list, merged with names given
	// on the command line.
	Names []string `mapstructure:"names"`

	// Honorifics overrides the default honorific token list used for
	// name variation generation. Empty means DefaultHonorifics.
	Honorifics []string `mapstructure:"honorifics"`

	// GenerateVariations expands each name into honorific/initials/case
	// variants before matching.
	GenerateVariations bool `mapstructure:"generate_variations"`

	// PageRange limits which PDF pages and PPTX slides are scanned.
	PageRange PageRange `mapstructure:"page_range"`

	// Zip controls output archive naming when the input is a ZIP.
	Zip ZipConfig `mapstructure:"zip"`

	// Detector configures the optional LLM-backed candidate name
	// detector. Detected names only ever widen the term set.
	Detector DetectorConfig `mapstructure:"detector"`
}

// PageRange is a 1-based inclusive page/slide window. Zero values mean
// unbounded on that side.
type PageRange struct {
	First int `mapstructure:"first"`
	Last  int `mapstructure:"last"`
}

// Contains reports whether 1-based page n falls inside the range.
func (r PageRange) Contains(n int) bool {
	if r.First > 0 && n < r.First {
		return false
	}
	if r.Last > 0 && n > r.Last {
		return false
	}
	return true
}

// ZipConfig controls output naming for ZIP inputs.
type ZipConfig struct {
	// OutputBase is the base name of the output archive. Empty means
	// "redacted_{original base name}".
	OutputBase string `mapstructure:"output_base"`

	// Initials, when set, renames archive members to
	// {base}_{INITIALS}_{NNNN}{ext}.
	Initials string `mapstructure:"initials"`

	// RenameMembers forces member renaming even without configured
	// initials; initials are then derived from each member's filename.
	RenameMembers bool `mapstructure:"rename_members"`
}

// DetectorConfig configures the optional candidate name detector.
type DetectorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// DefaultPlaceholder is used when no placeholder is configured.
const DefaultPlaceholder = "[REDACTED]"

// DefaultDetectorModel is used when the detector is enabled without a model.
const DefaultDetectorModel = "gpt-4o-mini"

// Default returns a Config with all defaults applied.
func Default() *Config {
	cfg := &Config{GenerateVariations: true}
	setDefaults(cfg)
	return cfg
}

// Validate checks invariants that later stages rely on.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Placeholder) == "" {
		return fmt.Errorf("placeholder must not be empty")
	}
	if cfg.PageRange.First < 0 || cfg.PageRange.Last < 0 {
		return fmt.Errorf("page range bounds must not be negative")
	}
	if cfg.PageRange.First > 0 && cfg.PageRange.Last > 0 && cfg.PageRange.First > cfg.PageRange.Last {
		return fmt.Errorf("page range first (%d) exceeds last (%d)", cfg.PageRange.First, cfg.PageRange.Last)
	}
	if cfg.Detector.Enabled && strings.TrimSpace(cfg.Detector.APIKey) == "" {
		return fmt.Errorf("detector is enabled but no API key is configured")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.Detector.Model == "" {
		cfg.Detector.Model = DefaultDetectorModel
	}
	cfg.Zip.Initials = strings.ToUpper(strings.TrimSpace(cfg.Zip.Initials))
}
