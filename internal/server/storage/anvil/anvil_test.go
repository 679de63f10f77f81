package anvil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/storagetest"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func open(t *testing.T, dir string) *Serializer {
	t.Helper()
	s, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSerializer(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Serializer {
		return open(t, t.TempDir())
	})
}

func TestRegionFileLayout(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir)

	for _, pos := range []chunk.Coord{{X: 0, Z: 0}, {X: 31, Z: 31}, {X: -1, Z: 0}, {X: 32, Z: -33}} {
		if err := s.SaveChunk(storagetest.SampleChunk(pos.X, pos.Z)); err != nil {
			t.Fatalf("SaveChunk(%v): %v", pos, err)
		}
	}
	for _, name := range []string{"r.0.0.mca", "r.-1.0.mca", "r.1.-2.mca"} {
		if _, err := os.Stat(filepath.Join(dir, "region", name)); err != nil {
			t.Errorf("region %s missing: %v", name, err)
		}
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := storagetest.SampleChunk(-7, 12)
	if err := s.SaveChunk(want); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLevel(&storage.Level{Name: "w", Seed: 9}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := open(t, dir)
	got := chunk.New(-7, 12)
	if err := s2.LoadChunk(got); err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	storagetest.AssertSameChunk(t, got, want)

	var l storage.Level
	if err := s2.LoadLevel(&l); err != nil || l.Seed != 9 {
		t.Errorf("level = %+v, %v", l, err)
	}
	if tmp, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(tmp) != 0 {
		t.Errorf("temp files left behind: %v", tmp)
	}
}

func TestConcurrentSavePlayer(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir)

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			p := player.New("steve", player.Position{X: float64(i), Y: 65})
			return s.SavePlayer(p)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	got := player.New("steve", player.Position{})
	if err := s.LoadPlayer(got); err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if y := got.GetPosition().Y; y != 65 {
		t.Errorf("y = %v, want 65", y)
	}
	if tmp, _ := filepath.Glob(filepath.Join(dir, "players", "*.tmp")); len(tmp) != 0 {
		t.Errorf("temp files left behind: %v", tmp)
	}
}

func TestDecodeChunkRejectsWrongPosition(t *testing.T) {
	raw, err := EncodeChunk(storagetest.SampleChunk(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := DecodeChunk(chunk.New(2, 1), raw); err == nil {
		t.Fatal("expected error for mismatched position")
	}
}

func TestEncodeChunkSkipsEmptySections(t *testing.T) {
	c := chunk.New(0, 0)
	c.SetBlock(0, 70, 0, 1)

	raw, err := EncodeChunk(c)
	if err != nil {
		t.Fatal(err)
	}
	small := len(raw)

	c.SetBlock(0, 5, 0, 1)
	raw, err = EncodeChunk(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) <= small {
		t.Errorf("second section not encoded: %d <= %d bytes", len(raw), small)
	}
}

func TestSectorCompression(t *testing.T) {
	payload := []byte("chunk payload chunk payload chunk payload")

	sector, err := compressSector(payload)
	if err != nil {
		t.Fatal(err)
	}
	if sector[0] != compressionZlib {
		t.Fatalf("compression byte = %d, want %d", sector[0], compressionZlib)
	}
	got, err := decompressSector(sector)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("decompress = %q, %v", got, err)
	}

	gz, err := gzipped(payload)
	if err != nil {
		t.Fatal(err)
	}
	got, err = decompressSector(append([]byte{compressionGzip}, gz...))
	if err != nil || string(got) != string(payload) {
		t.Fatalf("gzip sector = %q, %v", got, err)
	}

	if _, err := decompressSector([]byte{9, 1, 2}); err == nil {
		t.Error("expected error for unknown compression")
	}
}
