// Package storagetest checks that a storage.Serializer keeps what it is
// given. Each serializer package runs it from its own tests.
package storagetest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// SampleChunk returns a populated chunk with some blocks, metadata, light
// and a tile set.
func SampleChunk(x, z int) *chunk.Chunk {
	c := chunk.New(x, z)
	for lx := 0; lx < chunk.Width; lx++ {
		for lz := 0; lz < chunk.Width; lz++ {
			c.SetBlock(lx, 0, lz, 7)
			c.SetBlock(lx, 1, lz, 1)
			c.SetBlock(lx, 2, lz, 2)
		}
	}
	c.SetBlock(3, 40, 5, 17)
	c.SetMetadata(3, 40, 5, 2)
	c.SetBlock(9, 100, 9, 89)
	c.Biomes[17] = 4
	c.SetTile(&chunk.Tile{ID: "Sign", X: 1, Y: 3, Z: 2, Data: map[string]string{"Text1": "hello"}})
	c.Regenerate()
	c.Populated = true
	return c
}

// Run exercises every Serializer operation against a fresh instance.
func Run(t *testing.T, open func(t *testing.T) storage.Serializer) {
	t.Run("LevelMissing", func(t *testing.T) {
		s := open(t)
		var l storage.Level
		if err := s.LoadLevel(&l); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("LoadLevel err = %v, want ErrNotFound", err)
		}
	})

	t.Run("LevelRoundTrip", func(t *testing.T) {
		s := open(t)
		want := storage.Level{Name: "alpha", Seed: -42, SpawnX: 8, SpawnY: 70, SpawnZ: -8, LastPlayed: 1700000000000}
		if err := s.SaveLevel(&want); err != nil {
			t.Fatalf("SaveLevel: %v", err)
		}
		var got storage.Level
		if err := s.LoadLevel(&got); err != nil {
			t.Fatalf("LoadLevel: %v", err)
		}
		if got != want {
			t.Errorf("level = %+v, want %+v", got, want)
		}
	})

	t.Run("ChunkMissing", func(t *testing.T) {
		s := open(t)
		c := chunk.New(5, 5)
		if err := s.LoadChunk(c); err != nil {
			t.Fatalf("LoadChunk: %v", err)
		}
		if c.Populated {
			t.Error("missing chunk should stay unpopulated")
		}
	})

	t.Run("ChunkRoundTrip", func(t *testing.T) {
		s := open(t)
		for _, pos := range []chunk.Coord{{X: 0, Z: 0}, {X: -1, Z: -1}, {X: 33, Z: -40}} {
			want := SampleChunk(pos.X, pos.Z)
			if err := s.SaveChunk(want); err != nil {
				t.Fatalf("SaveChunk(%v): %v", pos, err)
			}
			got := chunk.New(pos.X, pos.Z)
			if err := s.LoadChunk(got); err != nil {
				t.Fatalf("LoadChunk(%v): %v", pos, err)
			}
			AssertSameChunk(t, got, want)
		}
	})

	t.Run("ChunkOverwrite", func(t *testing.T) {
		s := open(t)
		c := SampleChunk(2, 3)
		if err := s.SaveChunk(c); err != nil {
			t.Fatal(err)
		}
		c.SetBlock(3, 40, 5, 0)
		if err := s.SaveChunk(c); err != nil {
			t.Fatal(err)
		}
		got := chunk.New(2, 3)
		if err := s.LoadChunk(got); err != nil {
			t.Fatal(err)
		}
		if got.GetBlock(3, 40, 5) != 0 {
			t.Error("second save did not replace the first")
		}
	})

	t.Run("PlayerMissing", func(t *testing.T) {
		s := open(t)
		p := player.New("nobody", player.Position{Y: 64})
		if err := s.LoadPlayer(p); err != nil {
			t.Fatalf("LoadPlayer: %v", err)
		}
		if p.GetPosition().Y != 64 {
			t.Error("missing player should be untouched")
		}
	})

	t.Run("PlayerRoundTrip", func(t *testing.T) {
		s := open(t)
		p := player.New("steve", player.Position{Y: 64})
		p.SetPosition(player.Position{X: 1.5, Y: 70, Z: -3.25, Yaw: 90, Pitch: -10, OnGround: true})
		p.SetGameMode(1)
		p.SetSlot(0, player.Slot{ID: 1, Count: 64})
		p.SetSlot(35, player.Slot{ID: 276, Count: 1, Damage: 12})
		if err := s.SavePlayer(p); err != nil {
			t.Fatalf("SavePlayer: %v", err)
		}

		got := player.New("steve", player.Position{Y: 64})
		if err := s.LoadPlayer(got); err != nil {
			t.Fatalf("LoadPlayer: %v", err)
		}
		if got.Data() != p.Data() {
			t.Errorf("player = %+v, want %+v", got.Data(), p.Data())
		}
	})
}

// AssertSameChunk compares everything a serializer must keep.
func AssertSameChunk(t *testing.T, got, want *chunk.Chunk) {
	t.Helper()
	if !bytes.Equal(got.Blocks, want.Blocks) {
		t.Errorf("chunk (%d,%d): blocks differ", want.X, want.Z)
	}
	if !bytes.Equal(got.Metadata, want.Metadata) {
		t.Errorf("chunk (%d,%d): metadata differs", want.X, want.Z)
	}
	if !bytes.Equal(got.SkyLight, want.SkyLight) || !bytes.Equal(got.BlockLight, want.BlockLight) {
		t.Errorf("chunk (%d,%d): light differs", want.X, want.Z)
	}
	if got.HeightMap != want.HeightMap {
		t.Errorf("chunk (%d,%d): heightmap differs", want.X, want.Z)
	}
	if got.Biomes != want.Biomes {
		t.Errorf("chunk (%d,%d): biomes differ", want.X, want.Z)
	}
	if got.Populated != want.Populated {
		t.Errorf("chunk (%d,%d): populated = %v, want %v", want.X, want.Z, got.Populated, want.Populated)
	}
	if len(got.Tiles) != len(want.Tiles) {
		t.Fatalf("chunk (%d,%d): %d tiles, want %d", want.X, want.Z, len(got.Tiles), len(want.Tiles))
	}
	for pos, wt := range want.Tiles {
		gt, ok := got.Tiles[pos]
		if !ok {
			t.Errorf("chunk (%d,%d): tile at %v missing", want.X, want.Z, pos)
			continue
		}
		if gt.ID != wt.ID || gt.Data["Text1"] != wt.Data["Text1"] {
			t.Errorf("chunk (%d,%d): tile = %+v, want %+v", want.X, want.Z, gt, wt)
		}
	}
	if got.Dirty {
		t.Errorf("chunk (%d,%d): loaded chunk should be clean", want.X, want.Z)
	}
}
