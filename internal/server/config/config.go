package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Serializers names the storage formats the server can open.
var Serializers = []string{"anvil", "sqlite", "memory"}

// Config holds the server configuration.
type Config struct {
	DataDir    string   `yaml:"data_dir"`
	WorldName  string   `yaml:"world_name"`
	WorldURL   string   `yaml:"world_url"` // optional go-getter source for the initial world
	Serializer string   `yaml:"serializer"`
	Generators []string `yaml:"generators"`
	Season     string   `yaml:"season"` // "", "winter" or "spring"
	Seed       int64    `yaml:"seed"`

	CacheRadius  int           `yaml:"cache_radius"` // chunks pinned around spawn
	CacheSize    int           `yaml:"cache_size"`   // reclaimable tier capacity
	Async        bool          `yaml:"async"`
	Workers      int           `yaml:"workers"`
	SaveInterval time.Duration `yaml:"save_interval"`
	WarmupRate   float64       `yaml:"warmup_rate"`

	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "data",
		WorldName:     "world",
		Serializer:    "anvil",
		Generators:    []string{"terrain", "caves", "ores", "trees"},
		CacheRadius:   8,
		CacheSize:     1024,
		Async:         true,
		Workers:       runtime.NumCPU(),
		SaveInterval:  time.Second,
		LogLevel:      "info",
		LogMaxSizeMB:  100,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["data-dir"] {
		cfg.DataDir = fromFile.DataDir
	}
	if !explicitFlags["world"] {
		cfg.WorldName = fromFile.WorldName
	}
	if !explicitFlags["world-url"] {
		cfg.WorldURL = fromFile.WorldURL
	}
	if !explicitFlags["serializer"] {
		cfg.Serializer = fromFile.Serializer
	}
	if !explicitFlags["generators"] {
		cfg.Generators = fromFile.Generators
	}
	if !explicitFlags["season"] {
		cfg.Season = fromFile.Season
	}
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["cache-radius"] {
		cfg.CacheRadius = fromFile.CacheRadius
	}
	if !explicitFlags["cache-size"] {
		cfg.CacheSize = fromFile.CacheSize
	}
	if !explicitFlags["async"] {
		cfg.Async = fromFile.Async
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["save-interval"] {
		cfg.SaveInterval = fromFile.SaveInterval
	}
	if !explicitFlags["warmup-rate"] {
		cfg.WarmupRate = fromFile.WarmupRate
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["log-file"] {
		cfg.LogFile = fromFile.LogFile
	}
	// Rotation settings have no flags.
	cfg.LogMaxSizeMB = fromFile.LogMaxSizeMB
	cfg.LogMaxBackups = fromFile.LogMaxBackups
	cfg.LogMaxAgeDays = fromFile.LogMaxAgeDays
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Serializers, c.Serializer) {
		errs = append(errs, fmt.Errorf("serializer %q: want one of %v", c.Serializer, Serializers))
	}
	if c.WorldName == "" {
		errs = append(errs, errors.New("world_name is empty"))
	}
	if len(c.Generators) == 0 {
		errs = append(errs, errors.New("generators is empty"))
	}
	if c.CacheRadius < 0 {
		errs = append(errs, fmt.Errorf("cache_radius %d is negative", c.CacheRadius))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size %d must be positive", c.CacheSize))
	}
	if c.Async && c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d must be positive when async", c.Workers))
	}
	if c.SaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("save_interval %s must be positive", c.SaveInterval))
	}
	if c.WarmupRate < 0 {
		errs = append(errs, fmt.Errorf("warmup_rate %v is negative", c.WarmupRate))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
