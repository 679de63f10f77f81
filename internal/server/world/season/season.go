// Package season holds whole-chunk transforms applied to every chunk as it
// enters the world, and to resident chunks when the season changes.
package season

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

var ErrUnknownSeason = errors.New("unknown season")

const (
	blockWaterFlowing = 8
	blockWater        = 9
	blockSnowLayer    = 78
	blockIce          = 79
)

// Season rewrites the exposed surface of a chunk.
type Season interface {
	Name() string
	Transform(c *chunk.Chunk)
}

// Lookup returns the season registered under name. An empty name means no
// season and yields nil.
func Lookup(name string) (Season, error) {
	switch name {
	case "":
		return nil, nil
	case "winter":
		return Winter{}, nil
	case "spring":
		return Spring{}, nil
	}
	return nil, fmt.Errorf("season %q: %w", name, ErrUnknownSeason)
}

// Winter freezes surface water and lays snow on exposed ground.
type Winter struct{}

func (Winter) Name() string { return "winter" }

func (Winter) Transform(c *chunk.Chunk) {
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			top := c.HeightAt(x, z) - 1
			if top < 0 {
				continue
			}
			switch c.GetBlock(x, top, z) {
			case blockWater, blockWaterFlowing:
				c.SetBlock(x, top, z, blockIce)
				c.SetMetadata(x, top, z, 0)
			case blockIce:
			default:
				if top+1 < chunk.Height && c.GetBlock(x, top+1, z) == chunk.BlockAir {
					c.SetBlock(x, top+1, z, blockSnowLayer)
				}
			}
		}
	}
}

// Spring undoes Winter.
type Spring struct{}

func (Spring) Name() string { return "spring" }

func (Spring) Transform(c *chunk.Chunk) {
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			top := c.HeightAt(x, z) - 1
			if top < 0 {
				continue
			}
			if c.GetBlock(x, top, z) == blockIce {
				c.SetBlock(x, top, z, blockWater)
			}
			if top+1 < chunk.Height && c.GetBlock(x, top+1, z) == blockSnowLayer {
				c.Destroy(x, top+1, z)
			}
		}
	}
}
