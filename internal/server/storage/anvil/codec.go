package anvil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// Region sector compression types.
const (
	compressionGzip = 1
	compressionZlib = 2
	compressionNone = 3
)

const (
	sectionBlocks = chunk.SectionVolume
	sectionNibble = chunk.SectionVolume / 2
)

// MC 1.2-1.8 Anvil chunk layout.
type chunkFile struct {
	Level chunkLevel `nbt:"Level"`
}

type chunkLevel struct {
	XPos             int32        `nbt:"xPos"`
	ZPos             int32        `nbt:"zPos"`
	LastUpdate       int64        `nbt:"LastUpdate"`
	TerrainPopulated byte         `nbt:"TerrainPopulated"`
	Sections         []section    `nbt:"Sections"`
	Biomes           []byte       `nbt:"Biomes"`
	HeightMap        []int32      `nbt:"HeightMap"`
	TileEntities     []tileEntity `nbt:"TileEntities"`
}

type section struct {
	Y          byte   `nbt:"Y"`
	Blocks     []byte `nbt:"Blocks"`
	Data       []byte `nbt:"Data"`
	SkyLight   []byte `nbt:"SkyLight"`
	BlockLight []byte `nbt:"BlockLight"`
}

// Tile coordinates are world coordinates.
type tileEntity struct {
	ID     string            `nbt:"id"`
	X      int32             `nbt:"x"`
	Y      int32             `nbt:"y"`
	Z      int32             `nbt:"z"`
	Fields map[string]string `nbt:"Fields"`
}

// EncodeChunk encodes c as uncompressed Anvil NBT. Sections that hold only
// air are left out.
func EncodeChunk(c *chunk.Chunk) ([]byte, error) {
	lvl := chunkLevel{
		XPos:         int32(c.X),
		ZPos:         int32(c.Z),
		Biomes:       append([]byte(nil), c.Biomes[:]...),
		HeightMap:    make([]int32, chunk.Columns),
		Sections:     []section{},
		TileEntities: []tileEntity{},
	}
	if c.Populated {
		lvl.TerrainPopulated = 1
	}
	for i, h := range c.HeightMap {
		lvl.HeightMap[i] = int32(h)
	}

	for s := 0; s < chunk.Sections; s++ {
		blocks := c.Blocks[s*sectionBlocks : (s+1)*sectionBlocks]
		if allZero(blocks) {
			continue
		}
		nib := func(arr []byte) []byte {
			return append([]byte(nil), arr[s*sectionNibble:(s+1)*sectionNibble]...)
		}
		lvl.Sections = append(lvl.Sections, section{
			Y:          byte(s),
			Blocks:     append([]byte(nil), blocks...),
			Data:       nib(c.Metadata),
			SkyLight:   nib(c.SkyLight),
			BlockLight: nib(c.BlockLight),
		})
	}

	for _, t := range c.Tiles {
		lvl.TileEntities = append(lvl.TileEntities, tileEntity{
			ID:     t.ID,
			X:      int32(c.X*chunk.Width + t.X),
			Y:      int32(t.Y),
			Z:      int32(c.Z*chunk.Width + t.Z),
			Fields: t.Data,
		})
	}

	data, err := nbt.Marshal(chunkFile{Level: lvl})
	if err != nil {
		return nil, fmt.Errorf("encode chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return data, nil
}

// DecodeChunk fills c from uncompressed Anvil NBT. Flags are taken from the
// file; the chunk is left clean.
func DecodeChunk(c *chunk.Chunk, data []byte) error {
	var f chunkFile
	if err := nbt.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode chunk (%d,%d): %w", c.X, c.Z, err)
	}
	lvl := f.Level
	if int(lvl.XPos) != c.X || int(lvl.ZPos) != c.Z {
		return fmt.Errorf("decode chunk (%d,%d): stored position (%d,%d)", c.X, c.Z, lvl.XPos, lvl.ZPos)
	}

	for _, s := range lvl.Sections {
		y := int(s.Y)
		if y >= chunk.Sections {
			continue
		}
		if len(s.Blocks) != sectionBlocks || len(s.Data) != sectionNibble ||
			len(s.SkyLight) != sectionNibble || len(s.BlockLight) != sectionNibble {
			return fmt.Errorf("decode chunk (%d,%d) section %d: %w", c.X, c.Z, y, chunk.ErrBufferSize)
		}
		copy(c.Blocks[y*sectionBlocks:], s.Blocks)
		copy(c.Metadata[y*sectionNibble:], s.Data)
		copy(c.SkyLight[y*sectionNibble:], s.SkyLight)
		copy(c.BlockLight[y*sectionNibble:], s.BlockLight)
	}
	if len(lvl.Biomes) == chunk.Columns {
		copy(c.Biomes[:], lvl.Biomes)
	}
	if len(lvl.HeightMap) == chunk.Columns {
		for i, h := range lvl.HeightMap {
			c.HeightMap[i] = byte(min(max(h, 0), 255))
		}
	}
	for _, te := range lvl.TileEntities {
		t := &chunk.Tile{
			ID:   te.ID,
			X:    int(te.X) - c.X*chunk.Width,
			Y:    int(te.Y),
			Z:    int(te.Z) - c.Z*chunk.Width,
			Data: te.Fields,
		}
		c.Tiles[chunk.Pos{X: t.X, Y: t.Y, Z: t.Z}] = t
	}
	c.Populated = lvl.TerrainPopulated != 0
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

type levelFile struct {
	Data levelData `nbt:"Data"`
}

type levelData struct {
	LevelName  string `nbt:"LevelName"`
	RandomSeed int64  `nbt:"RandomSeed"`
	SpawnX     int32  `nbt:"SpawnX"`
	SpawnY     int32  `nbt:"SpawnY"`
	SpawnZ     int32  `nbt:"SpawnZ"`
	LastPlayed int64  `nbt:"LastPlayed"`
	Version    int32  `nbt:"version"`
}

const anvilVersion = 19133

// EncodeLevel encodes l as uncompressed level.dat NBT.
func EncodeLevel(l *storage.Level) ([]byte, error) {
	data, err := nbt.Marshal(levelFile{Data: levelData{
		LevelName:  l.Name,
		RandomSeed: l.Seed,
		SpawnX:     int32(l.SpawnX),
		SpawnY:     int32(l.SpawnY),
		SpawnZ:     int32(l.SpawnZ),
		LastPlayed: l.LastPlayed,
		Version:    anvilVersion,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode level: %w", err)
	}
	return data, nil
}

// DecodeLevel fills l from uncompressed level.dat NBT.
func DecodeLevel(l *storage.Level, data []byte) error {
	var f levelFile
	if err := nbt.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode level: %w", err)
	}
	l.Name = f.Data.LevelName
	l.Seed = f.Data.RandomSeed
	l.SpawnX = int(f.Data.SpawnX)
	l.SpawnY = int(f.Data.SpawnY)
	l.SpawnZ = int(f.Data.SpawnZ)
	l.LastPlayed = f.Data.LastPlayed
	return nil
}

type playerFile struct {
	Name             string    `nbt:"Name"`
	Pos              []float64 `nbt:"Pos"`
	Rotation         []float32 `nbt:"Rotation"`
	OnGround         byte      `nbt:"OnGround"`
	Stance           float64   `nbt:"Stance"`
	GameType         int32     `nbt:"playerGameType"`
	Inventory        []slotTag `nbt:"Inventory"`
	SelectedItemSlot int32     `nbt:"SelectedItemSlot"`
}

type slotTag struct {
	Slot   byte  `nbt:"Slot"`
	ID     int16 `nbt:"id"`
	Count  int8  `nbt:"Count"`
	Damage int16 `nbt:"Damage"`
}

// Armor slots are stored as 100..103, as the client numbers them.
const armorSlotBase = 100

// EncodePlayer encodes p as uncompressed player NBT.
func EncodePlayer(p *player.Player) ([]byte, error) {
	d := p.Data()
	f := playerFile{
		Name:             d.Username,
		Pos:              []float64{d.Position.X, d.Position.Y, d.Position.Z},
		Rotation:         []float32{d.Position.Yaw, d.Position.Pitch},
		Stance:           d.Stance,
		GameType:         int32(d.GameMode),
		Inventory:        []slotTag{},
		SelectedItemSlot: int32(d.HeldSlot),
	}
	if d.Position.OnGround {
		f.OnGround = 1
	}
	for i, s := range d.Inventory {
		if s.ID != 0 {
			f.Inventory = append(f.Inventory, slotTag{Slot: byte(i), ID: s.ID, Count: s.Count, Damage: s.Damage})
		}
	}
	for i, s := range d.Armor {
		if s.ID != 0 {
			f.Inventory = append(f.Inventory, slotTag{Slot: byte(armorSlotBase + i), ID: s.ID, Count: s.Count, Damage: s.Damage})
		}
	}

	data, err := nbt.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode player %s: %w", p.Username, err)
	}
	return data, nil
}

// DecodePlayer applies uncompressed player NBT to p.
func DecodePlayer(p *player.Player, data []byte) error {
	var f playerFile
	if err := nbt.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode player %s: %w", p.Username, err)
	}
	d := p.Data()
	if len(f.Pos) == 3 {
		d.Position.X, d.Position.Y, d.Position.Z = f.Pos[0], f.Pos[1], f.Pos[2]
	}
	if len(f.Rotation) == 2 {
		d.Position.Yaw, d.Position.Pitch = f.Rotation[0], f.Rotation[1]
	}
	d.Position.OnGround = f.OnGround != 0
	d.Stance = f.Stance
	d.GameMode = uint8(f.GameType)
	d.HeldSlot = int16(f.SelectedItemSlot)
	d.Inventory = [36]player.Slot{}
	d.Armor = [4]player.Slot{}
	for _, s := range f.Inventory {
		slot := player.Slot{ID: s.ID, Count: s.Count, Damage: s.Damage}
		switch {
		case int(s.Slot) < len(d.Inventory):
			d.Inventory[s.Slot] = slot
		case int(s.Slot) >= armorSlotBase && int(s.Slot) < armorSlotBase+len(d.Armor):
			d.Armor[int(s.Slot)-armorSlotBase] = slot
		}
	}
	p.Apply(d)
	return nil
}

// gzipped wraps data the way level.dat and player files are stored.
func gzipped(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipped(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return out, nil
}

// compressSector prefixes zlib-compressed data with its compression type, as
// region sectors store it.
func compressSector(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(compressionZlib)
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress chunk: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressSector(sector []byte) ([]byte, error) {
	if len(sector) == 0 {
		return nil, fmt.Errorf("empty sector")
	}
	switch sector[0] {
	case compressionGzip:
		return gunzipped(sector[1:])
	case compressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(sector[1:]))
		if err != nil {
			return nil, fmt.Errorf("open zlib: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("inflate chunk: %w", err)
		}
		return out, nil
	case compressionNone:
		return sector[1:], nil
	default:
		return nil, fmt.Errorf("unknown sector compression %d", sector[0])
	}
}
