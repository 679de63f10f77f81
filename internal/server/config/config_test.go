package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := `
world_name: alpha
serializer: sqlite
generators: [flat]
season: winter
seed: -12
save_interval: 250ms
warmup_rate: 50
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorldName != "alpha" || cfg.Serializer != "sqlite" || cfg.Season != "winter" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Generators) != 1 || cfg.Generators[0] != "flat" {
		t.Errorf("generators = %v, want [flat]", cfg.Generators)
	}
	if cfg.Seed != -12 {
		t.Errorf("seed = %d, want -12", cfg.Seed)
	}
	if cfg.SaveInterval != 250*time.Millisecond {
		t.Errorf("save_interval = %s, want 250ms", cfg.SaveInterval)
	}
	// Unset keys keep their defaults.
	if cfg.CacheSize != 1024 || cfg.Workers != runtime.NumCPU() {
		t.Errorf("cache_size/workers = %d/%d, want defaults", cfg.CacheSize, cfg.Workers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestMergeKeepsExplicitFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 99
	cfg.Serializer = "memory"

	fromFile := DefaultConfig()
	fromFile.Seed = 1
	fromFile.Serializer = "sqlite"
	fromFile.WorldName = "beta"

	Merge(cfg, fromFile, map[string]bool{"seed": true})

	if cfg.Seed != 99 {
		t.Errorf("seed = %d, want flag value 99", cfg.Seed)
	}
	if cfg.Serializer != "sqlite" || cfg.WorldName != "beta" {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"serializer", func(c *Config) { c.Serializer = "leveldb" }},
		{"generators", func(c *Config) { c.Generators = nil }},
		{"cache size", func(c *Config) { c.CacheSize = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"interval", func(c *Config) { c.SaveInterval = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Async = false
	cfg.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("workers are not needed without async: %v", err)
	}
}
