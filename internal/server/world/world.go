// Package world is the persistent chunk store: it serves chunks from two
// cache tiers, loads or generates missing ones, deduplicates concurrent
// requests and trickles dirty chunks back to the serializer.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
	"github.com/OCharnyshevich/worldstore/internal/server/world/gen"
	"github.com/OCharnyshevich/worldstore/internal/server/world/remote"
	"github.com/OCharnyshevich/worldstore/internal/server/world/season"
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("world closed")

const (
	DefaultCacheSize = 1024
	DefaultInterval  = time.Second
)

// Options configures a World.
type Options struct {
	Name string
	Seed int64 // used for a new world; zero picks a random seed
	// Generators are the stage names sent to remote workers. Empty means the
	// names of the local pipeline.
	Generators []string
	Workers    remote.Generator // nil disables out-of-band generation
	Season     season.Season
	CacheSize  int     // reclaimable tier capacity in chunks
	Interval   time.Duration
	WarmupRate float64 // chunk requests per second during SetCacheSize; 0 is unthrottled
}

// World owns the chunk caches of one world.
type World struct {
	opts     Options
	log      *slog.Logger
	ser      storage.Serializer
	pipeline gen.Pipeline

	ctx    context.Context // cancelled by Close; bounds worker calls
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards everything below, and every chunk that is resident.
	mu        sync.Mutex
	closed    bool
	level     storage.Level
	season    season.Season
	saving    bool
	cache     *reclaimable
	dirty     map[chunk.Coord]*chunk.Chunk
	permanent map[chunk.Coord]*chunk.Chunk
	pending   map[chunk.Coord]*pendingRequest
}

// New opens the world stored behind ser. A world without a saved level
// gets opts.Seed and a spawn of (0, 64, 0); the level is written back
// immediately so the seed is fixed on disk.
func New(opts Options, ser storage.Serializer, pipeline gen.Pipeline, log *slog.Logger) (*World, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if len(opts.Generators) == 0 {
		opts.Generators = pipeline.Names()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &World{
		opts:      opts,
		log:       log,
		ser:       ser,
		pipeline:  pipeline,
		ctx:       ctx,
		cancel:    cancel,
		season:    opts.Season,
		saving:    true,
		dirty:     make(map[chunk.Coord]*chunk.Chunk),
		permanent: make(map[chunk.Coord]*chunk.Chunk),
		pending:   make(map[chunk.Coord]*pendingRequest),
	}
	w.cache = newReclaimable(opts.CacheSize, w.evicted)

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int64()
	}
	w.level = storage.Level{Name: opts.Name, Seed: seed, SpawnY: 64}

	err := ser.LoadLevel(&w.level)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Info("creating new world", "name", opts.Name, "seed", seed)
	case err != nil:
		cancel()
		return nil, fmt.Errorf("load level: %w", err)
	}
	w.level.LastPlayed = time.Now().UnixMilli()
	if err := ser.SaveLevel(&w.level); err != nil {
		cancel()
		return nil, fmt.Errorf("save level: %w", err)
	}

	log.Info("world started",
		"name", opts.Name,
		"serializer", ser.Name(),
		"async", opts.Workers != nil,
		"seed", w.level.Seed,
		"generators", opts.Generators,
	)
	return w, nil
}

// Seed returns the world seed.
func (w *World) Seed() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level.Seed
}

// Spawn returns the spawn point in block coordinates.
func (w *World) Spawn() (x, y, z int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level.SpawnX, w.level.SpawnY, w.level.SpawnZ
}

// SetSeason makes s the transform for chunks entering the world and applies
// it to every resident chunk. Chunks it changes move to the dirty tier.
// It returns how many chunks changed.
func (w *World) SetSeason(s season.Season) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.season = s
	if s == nil {
		return 0
	}
	changed := 0
	for pos, c := range w.resident() {
		rev := c.Revision()
		s.Transform(c)
		if c.Revision() != rev {
			changed++
			w.file(pos, c)
		}
	}
	w.log.Info("season changed", "season", s.Name(), "changed", changed)
	return changed
}

// LoadPlayer returns the player called username, standing at spawn unless
// the serializer has saved state for them.
func (w *World) LoadPlayer(username string) (*player.Player, error) {
	x, y, z := w.Spawn()
	p := player.New(username, player.Position{X: float64(x), Y: float64(y), Z: float64(z)})
	if err := w.ser.LoadPlayer(p); err != nil {
		return nil, fmt.Errorf("load player %s: %w", username, err)
	}
	return p, nil
}

// SavePlayer persists p.
func (w *World) SavePlayer(username string, p *player.Player) error {
	if err := w.ser.SavePlayer(p); err != nil {
		return fmt.Errorf("save player %s: %w", username, err)
	}
	return nil
}

// Close stops background work: pending worker calls are cancelled and
// in-flight requests are waited for. It does not flush; call Flush first.
func (w *World) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
