// Package memory keeps a world in process memory. Nothing survives a
// restart; it backs tests and throwaway worlds.
package memory

import (
	"maps"
	"sync"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

type stored struct {
	buf       chunk.Buffers
	tiles     []chunk.Tile
	populated bool
}

// Serializer is an in-memory storage.Serializer. It is safe for concurrent
// use and copies data in both directions.
type Serializer struct {
	mu      sync.Mutex
	level   *storage.Level
	chunks  map[chunk.Coord]stored
	players map[string]player.Data

	saves int
}

var _ storage.Serializer = (*Serializer)(nil)

func New() *Serializer {
	return &Serializer{
		chunks:  make(map[chunk.Coord]stored),
		players: make(map[string]player.Data),
	}
}

func (s *Serializer) Name() string { return "memory" }

func (s *Serializer) LoadLevel(l *storage.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == nil {
		return storage.ErrNotFound
	}
	*l = *s.level
	return nil
}

func (s *Serializer) SaveLevel(l *storage.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.level = &cp
	return nil
}

func (s *Serializer) LoadChunk(c *chunk.Chunk) error {
	s.mu.Lock()
	st, ok := s.chunks[c.Coord()]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.Fill(st.buf); err != nil {
		return err
	}
	for _, t := range st.tiles {
		t.Data = maps.Clone(t.Data)
		c.Tiles[chunk.Pos{X: t.X, Y: t.Y, Z: t.Z}] = &t
	}
	c.Populated = st.populated
	return nil
}

func (s *Serializer) SaveChunk(c *chunk.Chunk) error {
	st := stored{
		buf:       c.Buffers(),
		populated: c.Populated,
	}
	for _, t := range c.Tiles {
		cp := *t
		cp.Data = maps.Clone(t.Data)
		st.tiles = append(st.tiles, cp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[c.Coord()] = st
	s.saves++
	return nil
}

func (s *Serializer) LoadPlayer(p *player.Player) error {
	s.mu.Lock()
	d, ok := s.players[p.UUID]
	s.mu.Unlock()
	if ok {
		p.Apply(d)
	}
	return nil
}

func (s *Serializer) SavePlayer(p *player.Player) error {
	d := p.Data()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.UUID] = d
	return nil
}

func (s *Serializer) Close() error { return nil }

// Saves reports how many chunk saves have been performed.
func (s *Serializer) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Has reports whether a chunk has been saved at (x, z).
func (s *Serializer) Has(x, z int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chunks[chunk.Coord{X: x, Z: z}]
	return ok
}
