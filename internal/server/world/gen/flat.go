package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

// flatStage lays a superflat world: bedrock at y=0, stone y=1..2, dirt
// y=3, grass y=4.
type flatStage struct{}

func (flatStage) Name() string { return "flat" }

func (flatStage) Populate(c *chunk.Chunk, _ int64) {
	layers := [...]byte{blockBedrock, blockStone, blockStone, blockDirt, blockGrass}
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			for y, id := range layers {
				c.SetBlock(x, y, z, id)
			}
			c.Biomes[z*chunk.Width+x] = biomePlains
		}
	}
}
