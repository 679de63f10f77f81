package chunk

import "fmt"

// Cells that let skylight through untouched.
var transparent = [256]bool{
	0:  true, // air
	6:  true, // sapling
	20: true, // glass
	31: true, // tall grass
	32: true, // dead bush
	37: true, // dandelion
	38: true, // rose
	50: true, // torch
	78: true, // snow layer
}

// Cells that emit block light, by id.
var emitters = [256]byte{
	10: 15, // flowing lava
	11: 15, // lava
	50: 14, // torch
	51: 15, // fire
	89: 15, // glowstone
	91: 15, // jack o'lantern
}

// Regenerate rebuilds derived data (heightmap, sky and block light) after
// the block array was produced by generation or decoding.
func (c *Chunk) Regenerate() {
	c.regenerateHeightMap()
	c.regenerateSkyLight()
	c.regenerateBlockLight()
}

// regenerateHeightMap stores, per column, one above the highest opaque cell.
func (c *Chunk) regenerateHeightMap() {
	for z := 0; z < Width; z++ {
		for x := 0; x < Width; x++ {
			h := 0
			for y := Height - 1; y >= 0; y-- {
				if !transparent[c.Blocks[y*Columns+z*Width+x]] {
					h = y + 1
					break
				}
			}
			if h > 255 {
				h = 255
			}
			c.HeightMap[z*Width+x] = byte(h)
		}
	}
}

func (c *Chunk) regenerateSkyLight() {
	clear(c.SkyLight)
	for z := 0; z < Width; z++ {
		for x := 0; x < Width; x++ {
			top := int(c.HeightMap[z*Width+x])
			for y := Height - 1; y >= top; y-- {
				setNibble(c.SkyLight, y*Columns+z*Width+x, 15)
			}
			// Light fades through water and leaves below the surface.
			light := byte(15)
			for y := top - 1; y >= 0 && light > 0; y-- {
				i := y*Columns + z*Width + x
				switch c.Blocks[i] {
				case 8, 9, 18, 79:
					light -= 2
					if light > 15 {
						light = 0
					}
				default:
					light = 0
				}
				setNibble(c.SkyLight, i, light)
			}
		}
	}
}

func (c *Chunk) regenerateBlockLight() {
	clear(c.BlockLight)
	for i, id := range c.Blocks {
		if v := emitters[id]; v > 0 {
			setNibble(c.BlockLight, i, v)
		}
	}
}

// Buffers is the raw form of a chunk's terrain as exchanged with generation
// workers.
type Buffers struct {
	Blocks     []byte
	HeightMap  []byte
	Metadata   []byte
	SkyLight   []byte
	BlockLight []byte
	Biomes     []byte // optional
}

// Buffers copies the chunk's terrain arrays out.
func (c *Chunk) Buffers() Buffers {
	return Buffers{
		Blocks:     append([]byte(nil), c.Blocks...),
		HeightMap:  append([]byte(nil), c.HeightMap[:]...),
		Metadata:   append([]byte(nil), c.Metadata...),
		SkyLight:   append([]byte(nil), c.SkyLight...),
		BlockLight: append([]byte(nil), c.BlockLight...),
		Biomes:     append([]byte(nil), c.Biomes[:]...),
	}
}

type sizeCheck struct {
	name      string
	got, want int
}

// Fill replaces the chunk's terrain arrays with b. Sizes must match the
// chunk's fixed dimensions; nothing is modified otherwise. A nil biome
// buffer leaves the biome map alone.
func (c *Chunk) Fill(b Buffers) error {
	checks := []sizeCheck{
		{"blocks", len(b.Blocks), Volume},
		{"heightmap", len(b.HeightMap), Columns},
		{"metadata", len(b.Metadata), Volume / 2},
		{"skylight", len(b.SkyLight), Volume / 2},
		{"blocklight", len(b.BlockLight), Volume / 2},
	}
	if b.Biomes != nil {
		checks = append(checks, sizeCheck{"biomes", len(b.Biomes), Columns})
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			return fmt.Errorf("%s: got %d bytes, want %d: %w", ch.name, ch.got, ch.want, ErrBufferSize)
		}
	}
	copy(c.Blocks, b.Blocks)
	copy(c.HeightMap[:], b.HeightMap)
	copy(c.Metadata, b.Metadata)
	copy(c.SkyLight, b.SkyLight)
	copy(c.BlockLight, b.BlockLight)
	if b.Biomes != nil {
		copy(c.Biomes[:], b.Biomes)
	}
	return nil
}
