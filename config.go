package examcache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the extraction pipeline.
type Config struct {
	// CacheRoot is the cache directory layout root:
	// {cache_root}/{exam_code}/_metadata/... and {exam_code}/{topic}/{question_id}/...
	CacheRoot string `toml:"cache_root"`

	// DPI is the rasterization resolution used by the Compositor/Rasterizer.
	DPI int `toml:"dpi"`

	Detection   DetectionConfig   `toml:"detection"`
	Writer      WriterConfig      `toml:"writer"`
	SearchIndex SearchIndexConfig `toml:"search_index"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Watch       WatchConfig       `toml:"watch"`
}

// DetectionConfig tunes the sanity checks layered on top of the
// detectors. The left-band/outlier geometry itself is fixed in the
// detect package — those numbers are load-bearing for the exam-board
// layouts this pipeline targets, not knobs.
type DetectionConfig struct {
	NumeralBBoxMaxWidthPx int `toml:"numeral_bbox_max_width_px"`
}

// WriterConfig tunes the write queue and PNG encoding.
type WriterConfig struct {
	ImageWriteWorkers   int           `toml:"image_write_workers"`
	PNGCompressionLevel int           `toml:"png_compression_level"`
	LockTimeout         time.Duration `toml:"lock_timeout"`
}

// SearchIndexConfig controls the optional SQLite FTS5 keyword side-index.
type SearchIndexConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// DiagnosticsConfig controls event collection and reporting.
type DiagnosticsConfig struct {
	Enabled     bool `toml:"enabled"`
	WriteReport bool `toml:"write_report"`
	Overlay     bool `toml:"overlay"`
}

// WatchConfig configures `cmd/examcache watch`'s drop-folder ingestion,
// grounded in alefaraci-GoSNare's WatchConfig/watcher.go.
type WatchConfig struct {
	InputDir     string `toml:"input_dir"`
	PollInterval int    `toml:"poll_interval"` // seconds, 0 = default
}

func (w WatchConfig) PollDuration() time.Duration {
	if w.PollInterval > 0 {
		return time.Duration(w.PollInterval) * time.Second
	}
	return 5 * time.Second
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheRoot: "./cache",
		DPI:       200,
		Detection: DetectionConfig{
			NumeralBBoxMaxWidthPx: 100,
		},
		Writer: WriterConfig{
			ImageWriteWorkers:   4,
			PNGCompressionLevel: 1,
			LockTimeout:         30 * time.Second,
		},
		SearchIndex: SearchIndexConfig{
			Enabled: false,
			DBPath:  "./cache/_search/index.db",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:     true,
			WriteReport: false,
			Overlay:     false,
		},
	}
}

// LoadConfig reads a TOML config file, falling back to DefaultConfig
// when the file does not exist, then applies environment-variable
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			// fall through to defaults + env
		} else if err != nil {
			return Config{}, err
		} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXAMCACHE_CACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := os.Getenv("EXAMCACHE_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			cfg.DPI = dpi
		}
	}
	if v := os.Getenv("EXAMCACHE_SEARCH_INDEX_DB_PATH"); v != "" {
		cfg.SearchIndex.DBPath = v
	}
	if v := os.Getenv("EXAMCACHE_WATCH_INPUT_DIR"); v != "" {
		cfg.Watch.InputDir = v
	}
}

// Validate reports invalid configuration values (ErrInvalidConfig).
func (c Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("%w: cache_root must not be empty", ErrInvalidConfig)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrInvalidConfig, c.DPI)
	}
	if c.Writer.ImageWriteWorkers <= 0 {
		return fmt.Errorf("%w: writer.image_write_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
