package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

const (
	blockAir       = 0
	blockStone     = 1
	blockGrass     = 2
	blockDirt      = 3
	blockBedrock   = 7
	blockWater     = 9 // stationary water
	blockLava      = 11
	blockSand      = 12
	blockGravel    = 13
	blockGoldOre   = 14
	blockIronOre   = 15
	blockCoalOre   = 16
	blockLog       = 17
	blockLeaves    = 18
	blockLapisOre  = 21
	blockSandstone = 24
	blockTallGrass = 31
	blockDeadBush  = 32
	blockFlower    = 38
	blockDiamond   = 56
	blockRedstone  = 73
	blockCactus    = 81

	// Wood and leaves variants (metadata).
	woodOak    = 0
	woodSpruce = 1
	woodBirch  = 2

	seaLevel  = 62
	maxHeight = chunk.Height - 12
)

// surfaceHeights returns the y of the topmost solid, non-liquid block per
// column, indexed [x][z]. Empty columns report 0.
func surfaceHeights(c *chunk.Chunk) *[16][16]int {
	var h [16][16]int
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
		column:
			for y := chunk.Height - 1; y >= 0; y-- {
				switch c.GetBlock(x, y, z) {
				case blockAir, blockWater, blockLava, blockLeaves, blockLog, blockTallGrass, blockFlower, blockDeadBush, blockCactus:
					continue
				}
				h[x][z] = y
				break column
			}
		}
	}
	return &h
}

func place(c *chunk.Chunk, x, y, z int, id, meta byte) {
	c.SetBlock(x, y, z, id)
	if meta != 0 {
		c.SetMetadata(x, y, z, meta)
	}
}
