package chunk

import (
	"errors"
	"sort"
	"sync/atomic"
)

const (
	Width         = 16
	Height        = 128
	SectionHeight = 16
	Sections      = Height / SectionHeight
	SectionVolume = Width * Width * SectionHeight
	Volume        = Width * Width * Height
	Columns       = Width * Width
)

// Block IDs the store itself needs to know about. Everything else is opaque.
const (
	BlockAir = 0
)

var ErrBufferSize = errors.New("chunk buffer size mismatch")

// dirtySeq orders chunks by the moment they last went from clean to dirty.
var dirtySeq atomic.Uint64

// Coord identifies a chunk column by chunk coordinates.
type Coord struct{ X, Z int }

// Pos is a cell position local to a chunk.
type Pos struct{ X, Y, Z int }

// Tile is block-attached state such as sign text or chest contents.
type Tile struct {
	ID      string
	X, Y, Z int
	Data    map[string]string
}

// Chunk is one 16×16×128 terrain column.
// Cell index = y*256 + z*16 + x, so every 16-high section is a contiguous
// run of SectionVolume cells.
type Chunk struct {
	X, Z int

	Blocks     []byte // one id per cell
	Metadata   []byte // nibble per cell
	SkyLight   []byte // nibble per cell
	BlockLight []byte // nibble per cell
	HeightMap  [Columns]byte
	Biomes     [Columns]byte
	Tiles      map[Pos]*Tile

	Populated bool
	Dirty     bool

	dirtySince uint64
	revision   uint64
	damage     map[Pos]struct{}
}

// New returns an empty, unpopulated chunk at the given chunk coordinates.
func New(x, z int) *Chunk {
	return &Chunk{
		X:          x,
		Z:          z,
		Blocks:     make([]byte, Volume),
		Metadata:   make([]byte, Volume/2),
		SkyLight:   make([]byte, Volume/2),
		BlockLight: make([]byte, Volume/2),
		Tiles:      make(map[Pos]*Tile),
		damage:     make(map[Pos]struct{}),
	}
}

// Coord returns the chunk's column coordinates.
func (c *Chunk) Coord() Coord {
	return Coord{X: c.X, Z: c.Z}
}

func index(x, y, z int) (int, bool) {
	if x < 0 || x >= Width || z < 0 || z >= Width || y < 0 || y >= Height {
		return 0, false
	}
	return y*Columns + z*Width + x, true
}

// GetBlock returns the block id at local coordinates, or air when out of range.
func (c *Chunk) GetBlock(x, y, z int) byte {
	i, ok := index(x, y, z)
	if !ok {
		return BlockAir
	}
	return c.Blocks[i]
}

// SetBlock writes a block id. It reports whether the cell changed.
func (c *Chunk) SetBlock(x, y, z int, id byte) bool {
	i, ok := index(x, y, z)
	if !ok || c.Blocks[i] == id {
		return false
	}
	c.Blocks[i] = id
	c.touch(Pos{x, y, z})
	return true
}

// GetMetadata returns the 4-bit metadata at local coordinates.
func (c *Chunk) GetMetadata(x, y, z int) byte {
	i, ok := index(x, y, z)
	if !ok {
		return 0
	}
	return getNibble(c.Metadata, i)
}

// SetMetadata writes 4-bit metadata. It reports whether the cell changed.
func (c *Chunk) SetMetadata(x, y, z int, v byte) bool {
	i, ok := index(x, y, z)
	if !ok || getNibble(c.Metadata, i) == v&0x0F {
		return false
	}
	setNibble(c.Metadata, i, v)
	c.touch(Pos{x, y, z})
	return true
}

// Destroy turns the cell into air and removes any tile occupying it.
func (c *Chunk) Destroy(x, y, z int) bool {
	i, ok := index(x, y, z)
	if !ok {
		return false
	}
	p := Pos{x, y, z}
	_, hadTile := c.Tiles[p]
	if c.Blocks[i] == BlockAir && getNibble(c.Metadata, i) == 0 && !hadTile {
		return false
	}
	c.Blocks[i] = BlockAir
	setNibble(c.Metadata, i, 0)
	delete(c.Tiles, p)
	c.touch(p)
	return true
}

// SetTile places a tile at its local position.
func (c *Chunk) SetTile(t *Tile) {
	c.Tiles[Pos{t.X, t.Y, t.Z}] = t
	c.touch(Pos{t.X, t.Y, t.Z})
}

// HeightAt returns the cached heightmap value for a column, or 0 when the
// column is outside the chunk.
func (c *Chunk) HeightAt(x, z int) int {
	if _, ok := index(x, 0, z); !ok {
		return 0
	}
	return int(c.HeightMap[z*Width+x])
}

func (c *Chunk) touch(p Pos) {
	c.revision++
	c.MarkDirty()
	c.damage[p] = struct{}{}
}

// MarkDirty flags unsaved changes. The first transition from clean records
// a sequence number so older dirty chunks can be flushed first.
func (c *Chunk) MarkDirty() {
	if !c.Dirty {
		c.dirtySince = dirtySeq.Add(1)
	}
	c.Dirty = true
}

// MarkClean is called right after a successful save.
func (c *Chunk) MarkClean() {
	c.Dirty = false
	c.dirtySince = 0
}

// DirtySince returns the sequence recorded by MarkDirty; zero when clean.
func (c *Chunk) DirtySince() uint64 {
	return c.dirtySince
}

// Revision counts effective cell changes since the chunk was created.
func (c *Chunk) Revision() uint64 {
	return c.revision
}

// ClearDamage forgets every change recorded since the chunk was last sent.
func (c *Chunk) ClearDamage() {
	clear(c.damage)
}

// Damaged returns the changed cells in index order.
func (c *Chunk) Damaged() []Pos {
	out := make([]Pos, 0, len(c.damage))
	for p := range c.damage {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

func getNibble(arr []byte, index int) byte {
	b := arr[index/2]
	if index%2 == 0 {
		return b & 0x0F
	}
	return b >> 4
}

// setNibble sets a 4-bit value at the given cell index in a nibble array.
func setNibble(arr []byte, index int, val byte) {
	byteIdx := index / 2
	if index%2 == 0 {
		arr[byteIdx] = (arr[byteIdx] & 0xF0) | (val & 0x0F)
	} else {
		arr[byteIdx] = (arr[byteIdx] & 0x0F) | ((val & 0x0F) << 4)
	}
}
