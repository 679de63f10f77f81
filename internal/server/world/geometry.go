package world

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// ErrOutOfBounds is returned for a position above or below the world.
var ErrOutOfBounds = errors.New("position out of bounds")

// Pos is a block position in world coordinates.
type Pos struct{ X, Y, Z int }

// String formats p as (x,y,z).
func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// resolveChunk loads the chunk holding p and returns it with p's local
// position inside it.
func (w *World) resolveChunk(p Pos) (*chunk.Chunk, chunk.Pos, error) {
	if p.Y < 0 || p.Y >= chunk.Height {
		return nil, chunk.Pos{}, fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	c, err := w.LoadChunk(p.X>>4, p.Z>>4)
	if err != nil {
		return nil, chunk.Pos{}, err
	}
	return c, chunk.Pos{X: p.X & 15, Y: p.Y, Z: p.Z & 15}, nil
}

// GetBlock returns the block ID at p, loading its chunk if needed.
func (w *World) GetBlock(p Pos) (byte, error) {
	c, lp, err := w.resolveChunk(p)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return c.GetBlock(lp.X, lp.Y, lp.Z), nil
}

// GetMetadata returns the metadata nibble at p.
func (w *World) GetMetadata(p Pos) (byte, error) {
	c, lp, err := w.resolveChunk(p)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return c.GetMetadata(lp.X, lp.Y, lp.Z), nil
}

// SetBlock changes the block at p. The chunk moves to the dirty tier.
func (w *World) SetBlock(p Pos, id byte) error {
	return w.mutate(p, func(c *chunk.Chunk, lp chunk.Pos) {
		c.SetBlock(lp.X, lp.Y, lp.Z, id)
	})
}

// SetMetadata changes the metadata nibble at p. The chunk moves to the
// dirty tier.
func (w *World) SetMetadata(p Pos, v byte) error {
	return w.mutate(p, func(c *chunk.Chunk, lp chunk.Pos) {
		c.SetMetadata(lp.X, lp.Y, lp.Z, v)
	})
}

// Destroy replaces the block at p with air.
func (w *World) Destroy(p Pos) error {
	return w.mutate(p, func(c *chunk.Chunk, lp chunk.Pos) {
		c.Destroy(lp.X, lp.Y, lp.Z)
	})
}

func (w *World) mutate(p Pos, fn func(*chunk.Chunk, chunk.Pos)) error {
	c, lp, err := w.resolveChunk(p)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(c, lp)
	if c.Dirty {
		w.file(c.Coord(), c)
	}
	return nil
}
