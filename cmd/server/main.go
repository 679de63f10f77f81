package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/natefinch/lumberjack"

	"github.com/OCharnyshevich/worldstore/internal/server"
	"github.com/OCharnyshevich/worldstore/internal/server/config"
)

func main() {
	cfg := config.DefaultConfig()

	var (
		configPath string
		generators string
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding worlds")
	flag.StringVar(&cfg.WorldName, "world", cfg.WorldName, "world name")
	flag.StringVar(&cfg.WorldURL, "world-url", cfg.WorldURL, "fetch the world from this go-getter URL")
	flag.StringVar(&cfg.Serializer, "serializer", cfg.Serializer, "storage format: anvil, sqlite or memory")
	flag.StringVar(&generators, "generators", strings.Join(cfg.Generators, ","), "comma-separated generator stages")
	flag.StringVar(&cfg.Season, "season", cfg.Season, "season transform: winter or spring")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for a new world (0 = random)")
	flag.IntVar(&cfg.CacheRadius, "cache-radius", cfg.CacheRadius, "chunks kept loaded around spawn")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "reclaimable chunk cache capacity")
	flag.BoolVar(&cfg.Async, "async", cfg.Async, "generate requested chunks on worker goroutines")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "generation workers")
	flag.DurationVar(&cfg.SaveInterval, "save-interval", cfg.SaveInterval, "maintenance interval")
	flag.Float64Var(&cfg.WarmupRate, "warmup-rate", cfg.WarmupRate, "spawn warm-up requests per second (0 = unthrottled)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this rotated file")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["generators"] {
		cfg.Generators = strings.Split(generators, ",")
	}

	if configPath != "" {
		fromFile, err := config.Load(configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
		config.Merge(cfg, fromFile, explicit)
	}

	log := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(cfg, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
