// Package config loads the TOML configuration shared by the trainer and the
// predictor.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

// Config represents the application configuration.
type Config struct {
	// Training data
	Data DataConfig `toml:"data"`

	// Split and hyperparameter search
	Train TrainConfig `toml:"train"`

	// Artifact and plot locations
	Output OutputConfig `toml:"output"`

	// Predictor web UI
	Server ServerConfig `toml:"server"`

	// Logging
	Log LogConfig `toml:"log"`
}

// DataConfig describes the input CSV.
type DataConfig struct {
	Path   string `toml:"path"`   // CSV file with a header row
	Target string `toml:"target"` // Label column
}

// TrainConfig contains split and search settings.
type TrainConfig struct {
	TestSize        float64 `toml:"test_size"`
	RandomState     int64   `toml:"random_state"`
	NIter           int     `toml:"n_iter"`
	CV              int     `toml:"cv"`
	NJobs           int     `toml:"n_jobs"` // -1 = all CPUs
	NEstimators     []int   `toml:"n_estimators"`
	MaxDepth        []int   `toml:"max_depth"` // 0 = no limit
	MinSamplesSplit []int   `toml:"min_samples_split"`
}

// OutputConfig contains output paths.
type OutputConfig struct {
	Artifact string `toml:"artifact"`  // Fitted pipeline bundle
	PlotsDir string `toml:"plots_dir"` // PNG plots; empty disables them
	Report   string `toml:"report"`    // HTML report; empty disables it
}

// ServerConfig contains predictor settings.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	CacheSize   int    `toml:"cache_size"`   // Cached predictions; 0 disables the cache
	WatchReload bool   `toml:"watch_reload"` // Reload the artifact when the file changes
	GinMode     string `toml:"gin_mode"`     // debug, release or test
}

// LogConfig contains log settings.
type LogConfig struct {
	Level      string `toml:"level"`
	Console    bool   `toml:"console"`
	File       string `toml:"file"` // Rotated log file; empty disables it
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Path:   "obesitas.csv",
			Target: "NObeyesdad",
		},
		Train: TrainConfig{
			TestSize:        0.2,
			RandomState:     42,
			NIter:           10,
			CV:              5,
			NJobs:           -1,
			NEstimators:     []int{100, 200, 300},
			MaxDepth:        []int{0, 10, 20, 30},
			MinSamplesSplit: []int{2, 5, 10},
		},
		Output: OutputConfig{
			Artifact: "obesity_pipeline.gob",
			PlotsDir: "plots",
			Report:   "",
		},
		Server: ServerConfig{
			Addr:        ":8501",
			CacheSize:   256,
			WatchReload: false,
			GinMode:     "release",
		},
		Log: LogConfig{
			Level:      "info",
			Console:    true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path yields
// the defaults; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	var errs error
	add := func(err error) { errs = errors.CombineErrors(errs, err) }

	if c.Data.Target == "" {
		add(errors.NewValidationError("data.target", "must not be empty", c.Data.Target))
	}
	t := c.Train
	if !(t.TestSize > 0 && t.TestSize < 1) {
		add(errors.NewValidationError("train.test_size", "must be in (0, 1)", t.TestSize))
	}
	if t.NIter < 1 {
		add(errors.NewValidationError("train.n_iter", "must be >= 1", t.NIter))
	}
	if t.CV < 2 {
		add(errors.NewValidationError("train.cv", "must be >= 2", t.CV))
	}
	if t.NJobs == 0 || t.NJobs < -1 {
		add(errors.NewValidationError("train.n_jobs", "must be -1 or positive", t.NJobs))
	}
	lists := []struct {
		name   string
		values []int
		min    int
	}{
		{"train.n_estimators", t.NEstimators, 1},
		{"train.max_depth", t.MaxDepth, 0},
		{"train.min_samples_split", t.MinSamplesSplit, 2},
	}
	for _, l := range lists {
		if len(l.values) == 0 {
			add(errors.NewValidationError(l.name, "must list at least one value", l.values))
		}
		for _, v := range l.values {
			if v < l.min {
				add(errors.NewValidationError(l.name, "value below minimum", v))
			}
		}
	}
	if c.Output.Artifact == "" {
		add(errors.NewValidationError("output.artifact", "must not be empty", c.Output.Artifact))
	}
	if c.Server.CacheSize < 0 {
		add(errors.NewValidationError("server.cache_size", "cannot be negative", c.Server.CacheSize))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		add(errors.NewValidationError("server.gin_mode", "must be debug, release or test", c.Server.GinMode))
	}
	return errs
}

// LogSettings converts the [log] section for log.Setup.
func (c *Config) LogSettings() log.Config {
	return log.Config{
		Level:      c.Log.Level,
		Console:    c.Log.Console,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
