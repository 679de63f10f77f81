package server

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCharnyshevich/worldstore/internal/server/config"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/anvil"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/sqlite"
)

func testConfig(t *testing.T, serializer string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Serializer = serializer
	cfg.Generators = []string{"flat"}
	cfg.Seed = 7
	cfg.CacheRadius = 1
	cfg.Workers = 2
	cfg.SaveInterval = 10 * time.Millisecond
	return cfg
}

// runUntilWarm starts srv and stops it once the spawn area is pinned.
func runUntilWarm(t *testing.T, srv *Server, pinned int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w := srv.World(); w != nil && w.Stats().Permanent == pinned {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if got := srv.World().Stats().Permanent; got != pinned {
		t.Errorf("permanent = %d, want %d", got, pinned)
	}
}

func TestStartFlushesOnShutdown(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	srv := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	runUntilWarm(t, srv, 4)

	ser, err := sqlite.Open(filepath.Join(cfg.DataDir, cfg.WorldName, "world.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer ser.Close()

	n, err := ser.Chunks()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("stored chunks = %d, want 4", n)
	}
	var l storage.Level
	if err := ser.LoadLevel(&l); err != nil {
		t.Fatalf("LoadLevel: %v", err)
	}
	if l.Seed != 7 {
		t.Errorf("seed = %d, want 7", l.Seed)
	}
}

func TestStartFromWorldURL(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := t.TempDir()
	ser, err := anvil.Open(src, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := ser.SaveLevel(&storage.Level{Name: "seeded", Seed: 1234, SpawnY: 64}); err != nil {
		t.Fatal(err)
	}
	ser.Close()

	cfg := testConfig(t, "anvil")
	cfg.WorldURL = src
	cfg.Async = false
	srv := New(cfg, log)
	runUntilWarm(t, srv, 4)

	if got := srv.World().Seed(); got != 1234 {
		t.Errorf("seed = %d, want the stored 1234", got)
	}
}

func TestStartUnknownSerializer(t *testing.T) {
	cfg := testConfig(t, "leveldb")
	srv := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected an error for an unknown serializer")
	}
}
