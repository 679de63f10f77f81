package gen

import (
	"bytes"
	"errors"
	"testing"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

func generate(t *testing.T, names []string, seed int64, x, z int) *chunk.Chunk {
	t.Helper()
	p, err := Lookup(names)
	if err != nil {
		t.Fatalf("Lookup(%v): %v", names, err)
	}
	c := chunk.New(x, z)
	p.Run(c, seed)
	return c
}

func TestDefaultPipelineDeterministic(t *testing.T) {
	c1 := generate(t, DefaultStages, 42, 3, -2)
	c2 := generate(t, DefaultStages, 42, 3, -2)

	if !bytes.Equal(c1.Blocks, c2.Blocks) {
		t.Fatal("blocks differ")
	}
	if !bytes.Equal(c1.Metadata, c2.Metadata) {
		t.Fatal("metadata differ")
	}
	if c1.Biomes != c2.Biomes {
		t.Fatal("biomes differ")
	}
	if c1.HeightMap != c2.HeightMap {
		t.Fatal("heightmaps differ")
	}
}

func TestDefaultPipelineDifferentSeeds(t *testing.T) {
	c1 := generate(t, DefaultStages, 1, 0, 0)
	c2 := generate(t, DefaultStages, 2, 0, 0)
	if bytes.Equal(c1.Blocks, c2.Blocks) {
		t.Error("different seeds should produce different terrain")
	}
}

func TestDefaultPipelineBedrockAtY0(t *testing.T) {
	for cx := -2; cx <= 2; cx++ {
		for cz := -2; cz <= 2; cz++ {
			c := generate(t, DefaultStages, 12345, cx, cz)
			for x := 0; x < chunk.Width; x++ {
				for z := 0; z < chunk.Width; z++ {
					if got := c.GetBlock(x, 0, z); got != blockBedrock {
						t.Fatalf("chunk(%d,%d) block at (%d,0,%d) = %d, want bedrock", cx, cz, x, z, got)
					}
				}
			}
		}
	}
}

func TestHeightReasonable(t *testing.T) {
	c := generate(t, []string{"terrain"}, 999, 0, 0)
	for i, h := range c.HeightMap {
		if h < 2 || int(h) > maxHeight+1 {
			t.Errorf("heightmap[%d] = %d, want 2..%d", i, h, maxHeight+1)
		}
	}
}

func TestFlatLayers(t *testing.T) {
	c := generate(t, []string{"flat"}, 0, 0, 0)

	tests := []struct {
		y     int
		block byte
		name  string
	}{
		{0, blockBedrock, "bedrock"},
		{1, blockStone, "stone"},
		{2, blockStone, "stone"},
		{3, blockDirt, "dirt"},
		{4, blockGrass, "grass"},
		{5, blockAir, "air"},
	}
	for _, tt := range tests {
		if got := c.GetBlock(7, tt.y, 9); got != tt.block {
			t.Errorf("y=%d: got %d, want %d (%s)", tt.y, got, tt.block, tt.name)
		}
	}
	if h := c.HeightAt(0, 0); h != 5 {
		t.Errorf("HeightAt = %d, want 5", h)
	}
	if c.Biomes[0] != biomePlains {
		t.Errorf("biome = %d, want plains", c.Biomes[0])
	}
}

func TestRunLeavesFlags(t *testing.T) {
	c := generate(t, []string{"flat"}, 0, 0, 0)
	if c.Populated {
		t.Error("Run must not set Populated")
	}
}

func TestLookupUnknownStage(t *testing.T) {
	_, err := Lookup([]string{"terrain", "volcanoes"})
	if !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("err = %v, want ErrUnknownStage", err)
	}
}

func TestPipelineNames(t *testing.T) {
	p, err := Lookup(DefaultStages)
	if err != nil {
		t.Fatal(err)
	}
	got := p.Names()
	if len(got) != len(DefaultStages) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range got {
		if got[i] != DefaultStages[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], DefaultStages[i])
		}
	}
}

func TestOresOnlyReplaceStone(t *testing.T) {
	c := generate(t, []string{"flat", "ores"}, 7, 0, 0)
	for x := 0; x < chunk.Width; x++ {
		for z := 0; z < chunk.Width; z++ {
			if c.GetBlock(x, 0, z) != blockBedrock {
				t.Fatalf("ores replaced bedrock at (%d,0,%d)", x, z)
			}
			if c.GetBlock(x, 4, z) != blockGrass {
				t.Fatalf("ores replaced grass at (%d,4,%d)", x, z)
			}
		}
	}
}
