// Package sqlite stores a whole world in one SQLite file. Chunk and player
// payloads use the anvil NBT layout, compressed with zstd.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/worldstore/internal/server/player"
	"github.com/OCharnyshevich/worldstore/internal/server/storage"
	"github.com/OCharnyshevich/worldstore/internal/server/storage/anvil"
	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// Serializer is a storage.Serializer backed by a single SQLite database.
type Serializer struct {
	db  *sql.DB
	log *slog.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ storage.Serializer = (*Serializer)(nil)

// Open opens or creates the database at path.
func Open(path string, log *slog.Logger) (*Serializer, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	log.Debug("opened sqlite world", "path", path)
	return &Serializer{db: db, log: log, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS level (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL,
			seed INTEGER NOT NULL,
			spawn_x INTEGER NOT NULL,
			spawn_y INTEGER NOT NULL,
			spawn_z INTEGER NOT NULL,
			last_played INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (x, z)
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			data BLOB NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Serializer) Name() string { return "sqlite" }

func (s *Serializer) LoadLevel(l *storage.Level) error {
	row := s.db.QueryRow(`SELECT name, seed, spawn_x, spawn_y, spawn_z, last_played FROM level WHERE id = 1`)
	err := row.Scan(&l.Name, &l.Seed, &l.SpawnX, &l.SpawnY, &l.SpawnZ, &l.LastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	return nil
}

func (s *Serializer) SaveLevel(l *storage.Level) error {
	_, err := s.db.Exec(`INSERT INTO level (id, name, seed, spawn_x, spawn_y, spawn_z, last_played)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, seed = excluded.seed,
			spawn_x = excluded.spawn_x, spawn_y = excluded.spawn_y, spawn_z = excluded.spawn_z,
			last_played = excluded.last_played`,
		l.Name, l.Seed, l.SpawnX, l.SpawnY, l.SpawnZ, l.LastPlayed)
	if err != nil {
		return fmt.Errorf("save level: %w", err)
	}
	return nil
}

func (s *Serializer) LoadChunk(c *chunk.Chunk) error {
	var blob []byte
	err := s.db.QueryRow(`SELECT data FROM chunks WHERE x = ? AND z = ?`, c.X, c.Z).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load chunk (%d,%d): %w", c.X, c.Z, err)
	}
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return fmt.Errorf("decompress chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return anvil.DecodeChunk(c, raw)
}

func (s *Serializer) SaveChunk(c *chunk.Chunk) error {
	raw, err := anvil.EncodeChunk(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO chunks (x, z, data) VALUES (?, ?, ?)
		ON CONFLICT(x, z) DO UPDATE SET data = excluded.data`,
		c.X, c.Z, s.enc.EncodeAll(raw, nil))
	if err != nil {
		return fmt.Errorf("save chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return nil
}

func (s *Serializer) LoadPlayer(p *player.Player) error {
	var blob []byte
	err := s.db.QueryRow(`SELECT data FROM players WHERE uuid = ?`, p.UUID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load player %s: %w", p.Username, err)
	}
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return fmt.Errorf("decompress player %s: %w", p.Username, err)
	}
	return anvil.DecodePlayer(p, raw)
}

func (s *Serializer) SavePlayer(p *player.Player) error {
	raw, err := anvil.EncodePlayer(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO players (uuid, name, data) VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET name = excluded.name, data = excluded.data`,
		p.UUID, p.Username, s.enc.EncodeAll(raw, nil))
	if err != nil {
		return fmt.Errorf("save player %s: %w", p.Username, err)
	}
	return nil
}

// Chunks returns how many chunks are stored.
func (s *Serializer) Chunks() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *Serializer) Close() error {
	s.enc.Close()
	s.dec.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
