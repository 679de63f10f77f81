package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/OCharnyshevich/worldstore/internal/server/config"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/anvil"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/memory"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/sqlite"
	"github.com/OCharnyshevich/worldstore/internal/server/world"
	"github.com/OCharnyshevich/worldstore/internal/server/world/gen"
	"github.com/OCharnyshevich/worldstore/internal/server/world/remote"
	"github.com/OCharnyshevich/worldstore/internal/server/world/season"
)

// Server hosts one world: it opens its storage, keeps the maintenance loop
// running and flushes everything on shutdown.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	mu    sync.Mutex
	world *world.World // set while Start runs
}

// New creates a new Server with the given config and logger.
func New(cfg *config.Config, log *slog.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// World returns the running world, or nil before Start has opened it.
func (s *Server) World() *world.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// Start opens the world and blocks until the context is cancelled. The world
// is flushed and its storage closed before Start returns.
func (s *Server) Start(ctx context.Context) (err error) {
	dir, err := s.worldDir(ctx)
	if err != nil {
		return err
	}
	ser, err := openSerializer(s.cfg.Serializer, dir, s.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ser.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close storage: %w", cerr))
		}
	}()

	pipeline, err := gen.Lookup(s.cfg.Generators)
	if err != nil {
		return err
	}
	sea, err := season.Lookup(s.cfg.Season)
	if err != nil {
		return err
	}

	opts := world.Options{
		Name:       s.cfg.WorldName,
		Seed:       s.cfg.Seed,
		Generators: s.cfg.Generators,
		Season:     sea,
		CacheSize:  s.cfg.CacheSize,
		Interval:   s.cfg.SaveInterval,
		WarmupRate: s.cfg.WarmupRate,
	}
	if s.cfg.Async {
		pool := remote.NewPool(s.cfg.Workers, s.log)
		defer pool.Close()
		opts.Workers = pool
	}

	w, err := world.New(opts, ser, pipeline, s.log)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.world = w
	s.mu.Unlock()

	s.log.Info("server started",
		"dir", dir,
		"serializer", ser.Name(),
		"season", s.cfg.Season,
		"cacheRadius", s.cfg.CacheRadius,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := w.SetCacheSize(ctx, s.cfg.CacheRadius); err != nil && ctx.Err() == nil {
			s.log.Error("warm up spawn area", "error", err)
		}
	}()

	<-ctx.Done()
	wg.Wait()
	s.log.Info("server shutting down")

	w.Close()
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush world: %w", err)
	}
	return nil
}

// worldDir is where the world lives on disk: a resolved world_url when one
// is configured, otherwise <data_dir>/<world_name>.
func (s *Server) worldDir(ctx context.Context) (string, error) {
	if s.cfg.WorldURL == "" {
		return filepath.Join(s.cfg.DataDir, s.cfg.WorldName), nil
	}
	dir, err := storage.Resolve(ctx, s.cfg.WorldURL, filepath.Join(s.cfg.DataDir, "cache"))
	if err != nil {
		return "", err
	}
	s.log.Info("resolved world", "url", s.cfg.WorldURL, "dir", dir)
	return dir, nil
}

func openSerializer(name, dir string, log *slog.Logger) (storage.Serializer, error) {
	switch name {
	case "anvil":
		return anvil.Open(dir, log)
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
		return sqlite.Open(filepath.Join(dir, "world.db"), log)
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown serializer %q", name)
}
