package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "racelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	// GIVEN a config setting some fields of each section
	path := writeConfig(t, `
parser:
  max_orphans: 32
  quarters: position
grid:
  granularity: 0.25
  palette: fire
cache:
  disabled: true
race:
  speedup: 4
`)

	// WHEN loaded
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	// THEN set fields win and the rest keep their defaults
	assert.Equal(t, 32, cfg.Parser.MaxOrphans)
	assert.Equal(t, "position", cfg.Parser.Quarters)
	assert.Equal(t, 0.25, cfg.Grid.Granularity)
	assert.Equal(t, "fire", cfg.Grid.Palette)
	assert.Equal(t, "normal", cfg.Grid.Brightness)
	assert.Equal(t, 0.5, cfg.Grid.Margin)
	assert.True(t, cfg.Cache.Disabled)
	assert.Equal(t, 4.0, cfg.Race.Speedup)
	assert.Equal(t, 100, cfg.Race.IntervalMs)
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	// GIVEN a typo in a field name
	path := writeConfig(t, "grid:\n  granularty: 0.2\n")

	// WHEN loaded THEN strict parsing fails
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsNonPositiveGranularity(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "grid:\n  granularity: 0\n"))
	assert.Error(t, err)
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_DefaultPathMayBeAbsent(t *testing.T) {
	// GIVEN a working directory without racelog.yaml
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	// WHEN loaded without a path THEN the defaults apply
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}
