package world

import (
	"context"
	"fmt"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
	"github.com/OCharnyshevich/worldstore/internal/server/world/remote"
)

// Future is the eventual result of a chunk request. It is resolved exactly
// once, with either a populated chunk or an error.
type Future struct {
	done chan struct{}
	c    *chunk.Chunk
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolved(c *chunk.Chunk, err error) *Future {
	f := newFuture()
	f.resolve(c, err)
	return f
}

func (f *Future) resolve(c *chunk.Chunk, err error) {
	f.c, f.err = c, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Giving up on
// the wait does not cancel the request.
func (f *Future) Wait(ctx context.Context) (*chunk.Chunk, error) {
	select {
	case <-f.done:
		return f.c, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future) Result() (*chunk.Chunk, error) {
	<-f.done
	return f.c, f.err
}

// pendingRequest is one in-flight load for a coordinate. Every caller that
// asks for the coordinate meanwhile subscribes a future to it.
type pendingRequest struct {
	waiters []*Future
}

// LoadChunk returns the chunk at (x, z), loading it from the serializer or
// generating it if it is not resident. The returned chunk is always
// populated. If another request for the same coordinate is in flight,
// LoadChunk waits for it instead of starting a second one.
func (w *World) LoadChunk(x, z int) (*chunk.Chunk, error) {
	pos := chunk.Coord{X: x, Z: z}

	w.mu.Lock()
	if c := w.lookup(pos); c != nil {
		w.mu.Unlock()
		return c, nil
	}
	if req, ok := w.pending[pos]; ok {
		f := newFuture()
		req.waiters = append(req.waiters, f)
		w.mu.Unlock()
		return f.Result()
	}
	f := newFuture()
	w.pending[pos] = &pendingRequest{waiters: []*Future{f}}
	w.mu.Unlock()

	c, err := w.fetch(w.ctx, pos, false)
	w.complete(pos, c, err)
	return f.Result()
}

// RequestChunk returns a future for the chunk at (x, z) without blocking.
// Concurrent requests for a coordinate that is not resident share a single
// load: the serializer and the generator run once and every future receives
// the same chunk, or the same error.
func (w *World) RequestChunk(x, z int) *Future {
	pos := chunk.Coord{X: x, Z: z}

	w.mu.Lock()
	defer w.mu.Unlock()
	if c := w.lookup(pos); c != nil {
		return resolved(c, nil)
	}
	f := newFuture()
	if req, ok := w.pending[pos]; ok {
		req.waiters = append(req.waiters, f)
		return f
	}
	if w.closed {
		return resolved(nil, ErrClosed)
	}
	w.pending[pos] = &pendingRequest{waiters: []*Future{f}}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		c, err := w.fetch(w.ctx, pos, w.opts.Workers != nil)
		w.complete(pos, c, err)
	}()
	return f
}

// fetch builds the chunk for pos outside the world lock: serializer first,
// then the generator when nothing was stored. With async set, generation
// goes to the worker pool.
func (w *World) fetch(ctx context.Context, pos chunk.Coord, async bool) (*chunk.Chunk, error) {
	c := chunk.New(pos.X, pos.Z)
	if err := w.ser.LoadChunk(c); err != nil {
		return nil, fmt.Errorf("load chunk (%d,%d): %w", pos.X, pos.Z, err)
	}
	if c.Populated {
		return c, nil
	}

	seed := w.Seed()
	if async {
		if err := w.generateRemote(ctx, c, seed); err != nil {
			return nil, err
		}
	} else {
		w.pipeline.Run(c, seed)
	}
	c.Populated = true
	c.MarkDirty()
	w.log.Debug("generated chunk", "chunkX", pos.X, "chunkZ", pos.Z, "async", async)
	return c, nil
}

func (w *World) generateRemote(ctx context.Context, c *chunk.Chunk, seed int64) error {
	res, err := w.opts.Workers.Generate(ctx, remote.Request{
		X:          c.X,
		Z:          c.Z,
		Seed:       seed,
		Generators: w.opts.Generators,
	})
	if err != nil {
		return fmt.Errorf("generate chunk (%d,%d): %w", c.X, c.Z, err)
	}
	if err := c.Fill(res); err != nil {
		return fmt.Errorf("generate chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return nil
}

// complete files a freshly fetched chunk and resolves everyone waiting on
// pos. The pending record is removed on failure too, so the next request
// tries again.
func (w *World) complete(pos chunk.Coord, c *chunk.Chunk, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err == nil {
		if w.season != nil {
			w.season.Transform(c)
		}
		// No client has seen this chunk yet.
		c.ClearDamage()
		w.file(pos, c)
	} else {
		w.log.Warn("chunk request failed", "chunkX", pos.X, "chunkZ", pos.Z, "error", err)
	}

	req := w.pending[pos]
	delete(w.pending, pos)
	if req == nil {
		return
	}
	for _, f := range req.waiters {
		f.resolve(c, err)
	}
}
