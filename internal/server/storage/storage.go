// Package storage defines how a world is persisted. Concrete formats live in
// the sub-packages; the world only talks to a Serializer.
package storage

import (
	"errors"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// ErrNotFound is returned by LoadLevel when the world has never been saved.
var ErrNotFound = errors.New("not found")

// Level is the world-wide state stored next to the chunks.
type Level struct {
	Name   string
	Seed   int64
	SpawnX int
	SpawnY int
	SpawnZ int
	// LastPlayed is a unix timestamp in milliseconds.
	LastPlayed int64
}

// Serializer reads and writes one world.
//
// LoadChunk fills c in place. A chunk that was never saved is not an error:
// c is left untouched and Populated stays false. LoadPlayer behaves the same
// way for unknown players.
type Serializer interface {
	Name() string

	LoadLevel(l *Level) error
	SaveLevel(l *Level) error

	LoadChunk(c *chunk.Chunk) error
	SaveChunk(c *chunk.Chunk) error

	LoadPlayer(p *player.Player) error
	SavePlayer(p *player.Player) error

	Close() error
}
