// Package anvil stores a world the way the MC 1.2-1.8 client does: region
// files of zlib-compressed chunk NBT, a gzipped level.dat and one gzipped
// file per player.
package anvil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tnze/go-mc/save/region"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

type regionPos struct{ X, Z int }

// Serializer is a directory-backed storage.Serializer.
type Serializer struct {
	dir string
	log *slog.Logger

	mu      sync.Mutex // guards regions and all region file I/O
	regions map[regionPos]*region.Region
}

var _ storage.Serializer = (*Serializer)(nil)

// Open prepares dir for use, creating subdirectories as needed.
func Open(dir string, log *slog.Logger) (*Serializer, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "region"),
		filepath.Join(dir, "players"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Serializer{
		dir:     dir,
		log:     log,
		regions: make(map[regionPos]*region.Region),
	}, nil
}

func (s *Serializer) Name() string { return "anvil" }

func (s *Serializer) levelPath() string {
	return filepath.Join(s.dir, "level.dat")
}

func (s *Serializer) playerPath(p *player.Player) string {
	return filepath.Join(s.dir, "players", p.UUID+".dat")
}

// LoadLevel reads level.dat. A world without one returns storage.ErrNotFound.
func (s *Serializer) LoadLevel(l *storage.Level) error {
	data, err := os.ReadFile(s.levelPath())
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read level: %w", err)
	}
	raw, err := gunzipped(data)
	if err != nil {
		return fmt.Errorf("read level: %w", err)
	}
	return DecodeLevel(l, raw)
}

// SaveLevel writes level.dat atomically.
func (s *Serializer) SaveLevel(l *storage.Level) error {
	raw, err := EncodeLevel(l)
	if err != nil {
		return err
	}
	data, err := gzipped(raw)
	if err != nil {
		return err
	}
	return atomicWrite(s.levelPath(), data)
}

// regionFor returns the cached handle for the region holding chunk (cx, cz).
// With create unset a missing region file yields nil. Callers hold s.mu.
func (s *Serializer) regionFor(cx, cz int, create bool) (*region.Region, error) {
	rx, rz := region.At(cx, cz)
	key := regionPos{rx, rz}
	if r, ok := s.regions[key]; ok {
		return r, nil
	}

	path := filepath.Join(s.dir, "region", fmt.Sprintf("r.%d.%d.mca", rx, rz))
	var r *region.Region
	_, err := os.Stat(path)
	switch {
	case err == nil:
		r, err = region.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open region %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && create:
		r, err = region.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create region %s: %w", path, err)
		}
		s.log.Debug("created region", "regionX", rx, "regionZ", rz)
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	default:
		return nil, fmt.Errorf("stat region %s: %w", path, err)
	}
	s.regions[key] = r
	return r, nil
}

// LoadChunk fills c from its region. A chunk that was never written leaves
// c untouched.
func (s *Serializer) LoadChunk(c *chunk.Chunk) error {
	s.mu.Lock()
	r, err := s.regionFor(c.X, c.Z, false)
	if err != nil || r == nil {
		s.mu.Unlock()
		return err
	}
	lx, lz := region.In(c.X, c.Z)
	if !r.ExistSector(lx, lz) {
		s.mu.Unlock()
		return nil
	}
	sector, err := r.ReadSector(lx, lz)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("read chunk (%d,%d): %w", c.X, c.Z, err)
	}

	raw, err := decompressSector(sector)
	if err != nil {
		return fmt.Errorf("read chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return DecodeChunk(c, raw)
}

// SaveChunk writes c into its region, creating the region file on first use.
func (s *Serializer) SaveChunk(c *chunk.Chunk) error {
	raw, err := EncodeChunk(c)
	if err != nil {
		return err
	}
	sector, err := compressSector(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.regionFor(c.X, c.Z, true)
	if err != nil {
		return err
	}
	lx, lz := region.In(c.X, c.Z)
	if err := r.WriteSector(lx, lz, sector); err != nil {
		return fmt.Errorf("write chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return nil
}

// LoadPlayer reads players/<uuid>.dat into p, leaving p untouched when the
// player has never been saved.
func (s *Serializer) LoadPlayer(p *player.Player) error {
	data, err := os.ReadFile(s.playerPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read player %s: %w", p.Username, err)
	}
	raw, err := gunzipped(data)
	if err != nil {
		return fmt.Errorf("read player %s: %w", p.Username, err)
	}
	return DecodePlayer(p, raw)
}

// SavePlayer writes players/<uuid>.dat atomically.
func (s *Serializer) SavePlayer(p *player.Player) error {
	raw, err := EncodePlayer(p)
	if err != nil {
		return err
	}
	data, err := gzipped(raw)
	if err != nil {
		return err
	}
	return atomicWrite(s.playerPath(p), data)
}

// Close closes every open region file.
func (s *Serializer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for key, r := range s.regions {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close region %d,%d: %w", key.X, key.Z, err))
		}
	}
	clear(s.regions)
	return errors.Join(errs...)
}

// atomicWrite writes data using a temp file + rename. Every call gets its
// own temp file, so concurrent writers of one path never share it.
func atomicWrite(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
