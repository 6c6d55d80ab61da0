package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "[REDACTED]", cfg.Placeholder)
	assert.True(t, cfg.GenerateVariations)
	assert.False(t, cfg.PreserveCase)
	assert.Equal(t, DefaultDetectorModel, cfg.Detector.Model)
	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Placeholder = "  "
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.PageRange = PageRange{First: 5, Last: 2}
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.PageRange = PageRange{First: -1}
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Detector.Enabled = true
	require.Error(t, Validate(cfg), "enabled detector needs an API key")
	cfg.Detector.APIKey = "sk-test"
	require.NoError(t, Validate(cfg))
}

func TestPageRangeContains(t *testing.T) {
	r := PageRange{}
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(999))

	r = PageRange{First: 2, Last: 3}
	assert.False(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(4))

	r = PageRange{Last: 2}
	assert.True(t, r.Contains(1))
	assert.False(t, r.Contains(3))
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redactor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
placeholder: "[GONE]"
preserve_case: true
names:
  - John Smith
page_range:
  first: 1
  last: 3
zip:
  output_base: bundle
  initials: js
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "[GONE]", cfg.Placeholder)
	assert.True(t, cfg.PreserveCase)
	assert.Equal(t, []string{"John Smith"}, cfg.Names)
	assert.True(t, cfg.GenerateVariations, "variation generation defaults on")
	assert.Equal(t, PageRange{First: 1, Last: 3}, cfg.PageRange)
	assert.Equal(t, "bundle", cfg.Zip.OutputBase)
	assert.Equal(t, "JS", cfg.Zip.Initials, "initials are normalized to upper case")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlaceholder, cfg.Placeholder)
	assert.True(t, cfg.GenerateVariations)
}
