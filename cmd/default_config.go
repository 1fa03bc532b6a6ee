package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// defaultConfigPath is read when --config is not given. A missing file
// means built-in defaults.
const defaultConfigPath = "racelog.yaml"

// Config represents the full racelog.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Parser ParserConfig `yaml:"parser"`
	Grid   GridConfig   `yaml:"grid"`
	Cache  CacheConfig  `yaml:"cache"`
	Race   RaceConfig   `yaml:"race"`
}

// ParserConfig tunes log loading.
type ParserConfig struct {
	MaxOrphans   int    `yaml:"max_orphans"`
	FirstEpisode int    `yaml:"first_episode"`
	Quarters     string `yaml:"quarters"` // auto, iteration or position
}

// GridConfig holds the analysis defaults.
type GridConfig struct {
	Granularity float64 `yaml:"granularity"` // metres per cell
	Brightness  string  `yaml:"brightness"`
	Palette     string  `yaml:"palette"`
	Margin      float64 `yaml:"margin"`
}

// CacheConfig locates the metadata cache.
type CacheConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// RaceConfig holds the replay defaults.
type RaceConfig struct {
	IntervalMs int     `yaml:"interval_ms"`
	Speedup    float64 `yaml:"speedup"`
}

func defaultConfig() Config {
	return Config{
		Parser: ParserConfig{Quarters: "auto"},
		Grid: GridConfig{
			Granularity: 0.1,
			Brightness:  "normal",
			Palette:     "multicolor",
			Margin:      0.5,
		},
		Cache: CacheConfig{Path: defaultCachePath()},
		Race:  RaceConfig{IntervalMs: 100, Speedup: 1},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".racelog", "meta.db")
	}
	return filepath.Join(dir, "racelog", "meta.db")
}

// loadConfig reads path over the defaults. Uses strict field checking:
// typos must cause errors. An empty path falls back to racelog.yaml in the
// working directory, which may be absent.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("no %s, using defaults", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if !(cfg.Grid.Granularity > 0) {
		return cfg, fmt.Errorf("config %s: grid.granularity must be positive", path)
	}
	if cfg.Race.IntervalMs <= 0 || !(cfg.Race.Speedup > 0) {
		return cfg, fmt.Errorf("config %s: race.interval_ms and race.speedup must be positive", path)
	}
	logrus.Debugf("loaded config %s", path)
	return cfg, nil
}
