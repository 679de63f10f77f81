package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

// Biome IDs, protocol 1.8 numbering.
const (
	biomeOcean      byte = 0
	biomePlains     byte = 1
	biomeDesert     byte = 2
	biomeMountains  byte = 3
	biomeForest     byte = 4
	biomeTaiga      byte = 5
	biomeTundra     byte = 12
	biomeBeach      byte = 16
	biomeJungle     byte = 21
	biomeDarkForest byte = 29
	biomeSnowyTaiga byte = 30
	biomeSavanna    byte = 35
)

// terrainStage lays down bedrock, stone, biome surface and water.
type terrainStage struct{}

func (terrainStage) Name() string { return "terrain" }

func (terrainStage) Populate(c *chunk.Chunk, seed int64) {
	t := newTerrain(seed)
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			bx := c.X*chunk.Width + x
			bz := c.Z*chunk.Width + z

			biome := t.biomeAt(bx, bz)
			c.Biomes[z*chunk.Width+x] = biome
			t.fillColumn(c, x, z, t.heightAt(bx, bz, biome), biome)
		}
	}
}

type terrain struct {
	height *Simplex
	detail *Simplex
	temp   *Simplex
	rain   *Simplex
}

func newTerrain(seed int64) *terrain {
	return &terrain{
		height: NewSimplex(seed),
		detail: NewSimplex(seed + 1),
		temp:   NewSimplex(seed + 100),
		rain:   NewSimplex(seed + 200),
	}
}

// biomeAt picks a biome from temperature/rainfall, with ocean and beach
// bands decided by the raw height field.
func (t *terrain) biomeAt(bx, bz int) byte {
	base := t.height.Octaves2(float64(bx)/128, float64(bz)/128, 6, 0.5)
	h := float64(seaLevel) + base*8
	switch {
	case h < seaLevel-8:
		return biomeOcean
	case h < seaLevel-2:
		return biomeBeach
	}

	tx, tz := float64(bx)/512, float64(bz)/512
	temp := t.temp.Octaves2(tx, tz, 4, 0.5)*0.8 + 0.75
	rain := t.rain.Octaves2(tx+100, tz+100, 4, 0.5)*0.5 + 0.5
	return selectBiome(temp, rain)
}

//	Temp\Rain     | Dry (<0.3)  | Medium (0.3-0.6) | Wet (>0.6)
//	Cold <0.3     | Tundra      | Snowy Taiga      | Taiga
//	Mild 0.3-0.7  | Plains      | Forest           | Dark Forest
//	Warm 0.7-1.2  | Savanna     | Plains           | Jungle
//	Hot >1.2      | Desert      | Desert           | Jungle
func selectBiome(temp, rain float64) byte {
	row := [4][3]byte{
		{biomeTundra, biomeSnowyTaiga, biomeTaiga},
		{biomePlains, biomeForest, biomeDarkForest},
		{biomeSavanna, biomePlains, biomeJungle},
		{biomeDesert, biomeDesert, biomeJungle},
	}
	r := 3
	switch {
	case temp < 0.3:
		r = 0
	case temp < 0.7:
		r = 1
	case temp < 1.2:
		r = 2
	}
	col := 2
	switch {
	case rain < 0.3:
		col = 0
	case rain < 0.6:
		col = 1
	}
	return row[r][col]
}

func (t *terrain) heightAt(bx, bz int, biome byte) int {
	base := t.height.Octaves2(float64(bx)/128, float64(bz)/128, 6, 0.5)
	detail := t.detail.Octaves2(float64(bx)/32, float64(bz)/32, 3, 0.5)

	amplitude, baseHeight := biomeRelief(biome)
	h := int(baseHeight + base*amplitude + detail*4)
	return min(max(h, 1), maxHeight)
}

// biomeRelief returns (amplitude, base height) for a biome.
func biomeRelief(biome byte) (float64, float64) {
	switch biome {
	case biomeOcean:
		return 8, 40
	case biomePlains, biomeSavanna, biomeTundra:
		return 12, seaLevel
	case biomeForest, biomeDarkForest, biomeDesert:
		return 16, seaLevel + 2
	case biomeTaiga, biomeSnowyTaiga, biomeJungle:
		return 18, seaLevel + 4
	case biomeMountains:
		return 40, seaLevel + 10
	case biomeBeach:
		return 3, seaLevel
	default:
		return 14, seaLevel
	}
}

func (t *terrain) fillColumn(c *chunk.Chunk, x, z, height int, biome byte) {
	c.SetBlock(x, 0, z, blockBedrock)
	for y := 1; y <= 3; y++ {
		if t.height.At2(float64(x+y*7)*0.5, float64(z)*0.5) > 0 {
			c.SetBlock(x, y, z, blockBedrock)
		} else {
			c.SetBlock(x, y, z, blockStone)
		}
	}
	for y := 4; y <= height; y++ {
		c.SetBlock(x, y, z, blockStone)
	}

	applySurface(c, x, z, height, biome)

	for y := height + 1; y <= seaLevel; y++ {
		c.SetBlock(x, y, z, blockWater)
	}
}

// applySurface replaces the top of a stone column with biome material.
func applySurface(c *chunk.Chunk, x, z, height int, biome byte) {
	layer := func(top, depth int, id byte) {
		for y := top; y > top-depth && y > 3; y-- {
			c.SetBlock(x, y, z, id)
		}
	}

	switch biome {
	case biomeDesert, biomeBeach:
		layer(height, 4, blockSand)
		layer(height-4, 2, blockSandstone)
	case biomeOcean:
		layer(height, 3, blockGravel)
		layer(height-3, 2, blockDirt)
	case biomeMountains:
		if height > 100 {
			return // bare stone peaks
		}
		defaultSurface(c, x, z, height)
	default:
		defaultSurface(c, x, z, height)
	}
}

func defaultSurface(c *chunk.Chunk, x, z, height int) {
	if height <= 3 {
		return
	}
	top := byte(blockGrass)
	if height <= seaLevel {
		top = blockDirt
	}
	c.SetBlock(x, height, z, top)
	for y := height - 1; y > height-4 && y > 3; y-- {
		c.SetBlock(x, y, z, blockDirt)
	}
}
