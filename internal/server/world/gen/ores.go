package gen

import "github.com/OCharnyshevich/worldstore/internal/server/world/chunk"

type vein struct {
	block    byte
	maxY     int
	size     int // blocks walked per vein
	attempts int // veins per chunk
}

var veins = []vein{
	{blockCoalOre, 128, 12, 20},
	{blockIronOre, 64, 8, 20},
	{blockGoldOre, 32, 8, 2},
	{blockDiamond, 16, 6, 1},
	{blockRedstone, 16, 6, 8},
	{blockLapisOre, 32, 6, 1},
}

// oreStage random-walks ore veins through stone.
type oreStage struct{}

func (oreStage) Name() string { return "ores" }

func (oreStage) Populate(c *chunk.Chunk, seed int64) {
	rng := newChunkRNG(seed, c.X, c.Z, 500)
	heights := surfaceHeights(c)

	for _, v := range veins {
		for range v.attempts {
			x, y, z := rng.nextN(16), rng.nextN(v.maxY), rng.nextN(16)
			if y >= heights[x][z] {
				continue
			}
			for range v.size {
				if x >= 0 && x < 16 && z >= 0 && z < 16 && y >= 1 && y < heights[x][z] &&
					c.GetBlock(x, y, z) == blockStone {
					c.SetBlock(x, y, z, v.block)
				}
				switch rng.nextN(6) {
				case 0:
					x++
				case 1:
					x--
				case 2:
					y++
				case 3:
					y--
				case 4:
					z++
				case 5:
					z--
				}
			}
		}
	}
}

// chunkRNG is a small LCG seeded from the world seed and chunk position so
// decoration is reproducible per chunk.
type chunkRNG struct {
	state int64
}

func newChunkRNG(seed int64, cx, cz int, salt int64) *chunkRNG {
	return &chunkRNG{state: seed ^ (int64(cx)*341873128712 + int64(cz)*132897987541 + salt)}
}

func (r *chunkRNG) nextN(n int) int {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	v := int(r.state>>33) % n
	if v < 0 {
		v = -v
	}
	return v
}
