package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// SortChunks is one maintenance pass. Chunks whose dirty flag no longer
// matches their tier are filed again, clean entries keep their LRU position,
// and at most one dirty chunk, the one that has been dirty longest, is
// written out. It returns the number of chunks saved.
func (w *World) SortChunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	for pos, c := range w.cache.entries() {
		if c.Dirty {
			w.file(pos, c)
		}
	}
	for pos, c := range w.dirty {
		if !c.Dirty {
			w.file(pos, c)
		}
	}

	if !w.saving {
		return 0
	}
	var oldest *chunk.Chunk
	for _, c := range w.dirty {
		if oldest == nil || c.DirtySince() < oldest.DirtySince() {
			oldest = c
		}
	}
	if oldest == nil {
		return 0
	}
	if err := w.ser.SaveChunk(oldest); err != nil {
		w.log.Error("failed to save chunk", "chunkX", oldest.X, "chunkZ", oldest.Z, "error", err)
		// Requeue behind every other dirty chunk.
		oldest.MarkClean()
		oldest.MarkDirty()
		return 0
	}
	oldest.MarkClean()
	w.file(oldest.Coord(), oldest)
	return 1
}

// Run performs a maintenance pass every Interval until ctx is done.
func (w *World) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.SortChunks(); n > 0 {
				w.log.Debug("saved chunks", "count", n)
			}
		}
	}
}

// Flush writes every dirty chunk and the level. Nothing is written while
// saving is off.
func (w *World) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.saving {
		w.log.Warn("flush skipped, saving is off")
		return nil
	}

	var errs []error
	saved := 0
	for _, pos := range sortedCoords(w.dirty) {
		c := w.dirty[pos]
		if err := w.ser.SaveChunk(c); err != nil {
			errs = append(errs, fmt.Errorf("save chunk (%d,%d): %w", pos.X, pos.Z, err))
			continue
		}
		c.MarkClean()
		w.file(pos, c)
		saved++
	}

	w.level.LastPlayed = time.Now().UnixMilli()
	if err := w.ser.SaveLevel(&w.level); err != nil {
		errs = append(errs, fmt.Errorf("save level: %w", err))
	}
	w.log.Info("world flushed", "chunks", saved, "failed", len(errs))
	return errors.Join(errs...)
}
