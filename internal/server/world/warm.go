package world

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// SetCacheSize pins the (2*radius)² chunks around spawn. Every chunk in the
// square is requested, waited for and kept in the permanent set, which
// replaces the previous one. Requests are paced by WarmupRate.
func (w *World) SetCacheSize(ctx context.Context, radius int) error {
	sx, _, sz := w.Spawn()
	cx, cz := sx>>4, sz>>4

	limit := rate.Inf
	if w.opts.WarmupRate > 0 {
		limit = rate.Limit(w.opts.WarmupRate)
	}
	limiter := rate.NewLimiter(limit, 1)

	futures := make(map[chunk.Coord]*Future, 4*radius*radius)
	for x := cx - radius; x < cx+radius; x++ {
		for z := cz - radius; z < cz+radius; z++ {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("warm up: %w", err)
			}
			futures[chunk.Coord{X: x, Z: z}] = w.RequestChunk(x, z)
		}
	}

	chunks := make(map[chunk.Coord]*chunk.Chunk, len(futures))
	results := make(chan *chunk.Chunk, len(futures))
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range futures {
		g.Go(func() error {
			c, err := f.Wait(gctx)
			if err != nil {
				return err
			}
			results <- c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm up: %w", err)
	}
	close(results)
	for c := range results {
		chunks[c.Coord()] = c
	}

	w.mu.Lock()
	w.permanent = chunks
	w.mu.Unlock()

	w.log.Info(fmt.Sprintf("cache size is now %d", len(chunks)), "radius", radius, "spawnChunkX", cx, "spawnChunkZ", cz)
	return nil
}
