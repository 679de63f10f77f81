// Package remote runs terrain generation out of band. Callers hand over a
// self-contained Request and get raw terrain buffers back, so a worker never
// touches a live chunk.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
	"github.com/OCharnyshevich/worldstore/internal/server/world/gen"
)

var ErrClosed = errors.New("generation pool closed")

// Request describes one chunk to generate.
type Request struct {
	X, Z       int
	Seed       int64
	Generators []string
}

// Result is the generated terrain in raw buffer form.
type Result = chunk.Buffers

// Generator is the worker facility seen by the world.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

type job struct {
	req   Request
	reply chan reply
}

type reply struct {
	res Result
	err error
}

// Pool is a fixed set of generation goroutines fed through a job queue.
type Pool struct {
	log  *slog.Logger
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	generated atomic.Uint64
}

// NewPool starts workers goroutines. workers <= 0 means one.
func NewPool(workers int, log *slog.Logger) *Pool {
	workers = max(workers, 1)
	p := &Pool{
		log:  log,
		jobs: make(chan job, workers*4),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				res, err := p.run(j.req)
				j.reply <- reply{res: res, err: err}
			}
		}()
	}
	log.Info("generation pool started", "workers", workers)
	return p
}

func (p *Pool) run(req Request) (Result, error) {
	pipeline, err := gen.Lookup(req.Generators)
	if err != nil {
		return Result{}, fmt.Errorf("build pipeline: %w", err)
	}
	c := chunk.New(req.X, req.Z)
	pipeline.Run(c, req.Seed)
	p.generated.Add(1)
	p.log.Debug("generated chunk", "chunkX", req.X, "chunkZ", req.Z)
	return c.Buffers(), nil
}

// Generate queues req and waits for its buffers. ctx bounds both the wait
// for a free queue slot and the wait for the result.
func (p *Pool) Generate(ctx context.Context, req Request) (Result, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return Result{}, ErrClosed
	}
	j := job{req: req, reply: make(chan reply, 1)}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		p.mu.RUnlock()
		return Result{}, ctx.Err()
	}
	p.mu.RUnlock()

	select {
	case r := <-j.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Generated returns how many chunks the pool has produced.
func (p *Pool) Generated() uint64 {
	return p.generated.Load()
}

// Close stops accepting work, lets queued jobs finish and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
