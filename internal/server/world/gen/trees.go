package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

// treeStage places trees and ground vegetation per biome. Trees are kept
// inside the chunk so a stage never writes into a neighbour.
type treeStage struct{}

func (treeStage) Name() string { return "trees" }

func (treeStage) Populate(c *chunk.Chunk, seed int64) {
	rng := newChunkRNG(seed, c.X, c.Z, 600)
	heights := surfaceHeights(c)

	for range treesForBiome(c.Biomes[8*chunk.Width+8]) {
		x, z := rng.nextN(16), rng.nextN(16)
		y := heights[x][z]
		if y <= seaLevel || c.GetBlock(x, y, z) != blockGrass {
			continue
		}

		switch c.Biomes[z*chunk.Width+x] {
		case biomeTaiga, biomeSnowyTaiga:
			placeSpruce(c, x, y+1, z, rng)
		case biomeForest, biomeDarkForest:
			if rng.nextN(3) == 0 {
				placeBroadleaf(c, x, y+1, z, 5+rng.nextN(2), woodBirch, rng)
			} else {
				placeBroadleaf(c, x, y+1, z, 4+rng.nextN(3), woodOak, rng)
			}
		default:
			placeBroadleaf(c, x, y+1, z, 4+rng.nextN(3), woodOak, rng)
		}
	}

	placeVegetation(c, heights, rng)
}

func treesForBiome(biome byte) int {
	switch biome {
	case biomeDesert, biomeOcean, biomeBeach:
		return 0
	case biomePlains, biomeSavanna:
		return 1
	case biomeTundra, biomeSnowyTaiga:
		return 4
	case biomeTaiga:
		return 6
	case biomeForest:
		return 8
	case biomeDarkForest:
		return 10
	case biomeJungle:
		return 12
	default:
		return 2
	}
}

// placeBroadleaf places an oak or birch: a trunk topped by a rounded canopy.
func placeBroadleaf(c *chunk.Chunk, x, baseY, z, trunk int, wood byte, rng *chunkRNG) {
	if baseY+trunk+2 >= chunk.Height {
		return
	}
	for y := baseY; y < baseY+trunk; y++ {
		place(c, x, y, z, blockLog, wood)
	}

	leafBase := baseY + trunk - 2
	for dy := range 4 {
		radius := 2
		if dy >= 2 {
			radius = 1
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				if radius == 2 && abs(dx) == 2 && abs(dz) == 2 && rng.nextN(2) == 0 {
					continue
				}
				leaf(c, x+dx, leafBase+dy, z+dz, wood)
			}
		}
	}
}

// placeSpruce places a conical conifer.
func placeSpruce(c *chunk.Chunk, x, baseY, z int, rng *chunkRNG) {
	trunk := 6 + rng.nextN(4)
	if baseY+trunk+1 >= chunk.Height {
		return
	}
	for y := baseY; y < baseY+trunk; y++ {
		place(c, x, y, z, blockLog, woodSpruce)
	}

	for dy := 1; dy <= trunk; dy++ {
		radius := min((trunk-dy)/2, 3)
		if radius <= 0 || (radius >= 2 && dy%2 == 0) {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				leaf(c, x+dx, baseY+dy, z+dz, woodSpruce)
			}
		}
	}
	leaf(c, x, baseY+trunk, z, woodSpruce)
}

// leaf places leaves only into air inside the chunk.
func leaf(c *chunk.Chunk, x, y, z int, wood byte) {
	if x < 0 || x >= chunk.Width || z < 0 || z >= chunk.Width || y < 0 || y >= chunk.Height {
		return
	}
	if c.GetBlock(x, y, z) == blockAir {
		place(c, x, y, z, blockLeaves, wood)
	}
}

func placeVegetation(c *chunk.Chunk, heights *[16][16]int, rng *chunkRNG) {
	for range 20 {
		x, z := rng.nextN(16), rng.nextN(16)
		y := heights[x][z]
		if y <= seaLevel || y+3 >= chunk.Height {
			continue
		}
		top := c.GetBlock(x, y, z)

		switch c.Biomes[z*chunk.Width+x] {
		case biomeDesert:
			if top != blockSand {
				continue
			}
			if rng.nextN(8) == 0 {
				h := 1 + rng.nextN(3)
				for dy := 1; dy <= h; dy++ {
					c.SetBlock(x, y+dy, z, blockCactus)
				}
			} else if rng.nextN(4) == 0 {
				c.SetBlock(x, y+1, z, blockDeadBush)
			}
		case biomePlains, biomeForest, biomeDarkForest, biomeSavanna, biomeJungle:
			if top != blockGrass {
				continue
			}
			if rng.nextN(3) == 0 {
				place(c, x, y+1, z, blockTallGrass, 1)
			} else if rng.nextN(8) == 0 {
				c.SetBlock(x, y+1, z, blockFlower)
			}
		case biomeTaiga, biomeSnowyTaiga, biomeTundra:
			if top == blockGrass && rng.nextN(6) == 0 {
				place(c, x, y+1, z, blockTallGrass, 1)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
