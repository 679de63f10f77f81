package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

// caveStage carves tunnels where two 3D noise fields agree, filling the
// bottom of deep caves with lava.
type caveStage struct{}

func (caveStage) Name() string { return "caves" }

func (caveStage) Populate(c *chunk.Chunk, seed int64) {
	const (
		threshold = 0.55
		lavaLevel = 10
	)

	n1 := NewSimplex(seed + 300)
	n2 := NewSimplex(seed + 400)
	heights := surfaceHeights(c)

	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			bx := float64(c.X*chunk.Width + x)
			bz := float64(c.Z*chunk.Width + z)

			// Keep bedrock and the top four blocks intact.
			for y := 4; y < heights[x][z]-4; y++ {
				by := float64(y)
				density := (n1.At3(bx/32, by/24, bz/32) + n2.At3(bx/48, by/32, bz/48)) / 2
				if density <= threshold {
					continue
				}
				if y < lavaLevel {
					c.SetBlock(x, y, z, blockLava)
				} else {
					c.SetBlock(x, y, z, blockAir)
				}
			}
		}
	}
}
