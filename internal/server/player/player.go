package player

import (
	"crypto/md5"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Position holds a player's world position and orientation.
type Position struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

// Slot is one stored inventory stack.
type Slot struct {
	ID     int16
	Count  int8
	Damage int16
}

// Player is the persisted state of a player. Connection handling lives
// elsewhere; the world only loads and saves this.
type Player struct {
	mu       sync.RWMutex
	UUID     string // hyphenated
	Username string

	pos      Position
	stance   float64
	gameMode uint8

	inventory [36]Slot
	armor     [4]Slot
	heldSlot  int16
}

// New creates a player standing at spawn, with the offline-mode UUID
// derived from its name.
func New(username string, spawn Position) *Player {
	return &Player{
		UUID:     OfflineUUID(username).String(),
		Username: username,
		pos:      spawn,
		stance:   spawn.Y,
	}
}

// OfflineUUID generates UUID v3 from "OfflinePlayer:<username>".
func OfflineUUID(username string) uuid.UUID {
	h := md5.Sum([]byte("OfflinePlayer:" + username))
	h[6] = (h[6] & 0x0f) | 0x30
	h[8] = (h[8] & 0x3f) | 0x80
	return uuid.UUID(h)
}

// GetPosition returns a copy of the player's current position.
func (p *Player) GetPosition() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// SetPosition moves the player. Stance follows the new feet height.
func (p *Player) SetPosition(pos Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
	p.stance = pos.Y
}

func (p *Player) Stance() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stance
}

func (p *Player) GameMode() uint8 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gameMode
}

func (p *Player) SetGameMode(mode uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gameMode = mode
}

// SetSlot stores a stack in one of the 36 main inventory slots.
func (p *Player) SetSlot(i int, s Slot) bool {
	if i < 0 || i >= len(p.inventory) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventory[i] = s
	return true
}

// ChunkX returns the chunk X coordinate for the player's current position.
func (p *Player) ChunkX() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(p.pos.X)) >> 4
}

// ChunkZ returns the chunk Z coordinate for the player's current position.
func (p *Player) ChunkZ() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(p.pos.Z)) >> 4
}
