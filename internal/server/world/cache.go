package world

import (
	"cmp"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

// reclaimable is the tier of chunks that may vanish without loss. While
// saving is on it is a bounded LRU; while saving is off it is a plain map so
// nothing disappears under a backup.
type reclaimable struct {
	size    int
	onEvict func(chunk.Coord, *chunk.Chunk)
	quiet   bool // suppresses onEvict during remove

	lru    *lru.Cache[chunk.Coord, *chunk.Chunk] // nil while held strongly
	strong map[chunk.Coord]*chunk.Chunk
	used   map[chunk.Coord]uint64 // last use while held strongly
	tick   uint64
}

func newReclaimable(size int, onEvict func(chunk.Coord, *chunk.Chunk)) *reclaimable {
	r := &reclaimable{size: size, onEvict: onEvict}
	r.lru = r.newLRU()
	return r
}

func (r *reclaimable) newLRU() *lru.Cache[chunk.Coord, *chunk.Chunk] {
	// Only fails for a non-positive size, which New rules out.
	c, err := lru.NewWithEvict(r.size, func(pos chunk.Coord, c *chunk.Chunk) {
		if !r.quiet {
			r.onEvict(pos, c)
		}
	})
	if err != nil {
		panic(err)
	}
	return c
}

func (r *reclaimable) get(pos chunk.Coord) (*chunk.Chunk, bool) {
	if r.lru == nil {
		c, ok := r.strong[pos]
		if ok {
			r.touch(pos)
		}
		return c, ok
	}
	return r.lru.Get(pos)
}

func (r *reclaimable) add(pos chunk.Coord, c *chunk.Chunk) {
	if r.lru == nil {
		r.strong[pos] = c
		r.touch(pos)
		return
	}
	r.lru.Add(pos, c)
}

// remove drops pos without running the eviction hook.
func (r *reclaimable) remove(pos chunk.Coord) {
	if r.lru == nil {
		delete(r.strong, pos)
		delete(r.used, pos)
		return
	}
	if !r.lru.Contains(pos) {
		return
	}
	r.quiet = true
	r.lru.Remove(pos)
	r.quiet = false
}

func (r *reclaimable) len() int {
	if r.lru == nil {
		return len(r.strong)
	}
	return r.lru.Len()
}

// entries returns a copy of the tier's contents.
func (r *reclaimable) entries() map[chunk.Coord]*chunk.Chunk {
	if r.lru == nil {
		out := make(map[chunk.Coord]*chunk.Chunk, len(r.strong))
		for pos, c := range r.strong {
			out[pos] = c
		}
		return out
	}
	out := make(map[chunk.Coord]*chunk.Chunk, r.lru.Len())
	for _, pos := range r.lru.Keys() {
		if c, ok := r.lru.Peek(pos); ok {
			out[pos] = c
		}
	}
	return out
}

func (r *reclaimable) touch(pos chunk.Coord) {
	r.tick++
	r.used[pos] = r.tick
}

// hold switches to strong holding, keeping every entry and its recency.
func (r *reclaimable) hold() {
	if r.lru == nil {
		return
	}
	r.strong = make(map[chunk.Coord]*chunk.Chunk, r.lru.Len())
	r.used = make(map[chunk.Coord]uint64, r.lru.Len())
	for _, pos := range r.lru.Keys() {
		if c, ok := r.lru.Peek(pos); ok {
			r.strong[pos] = c
			r.touch(pos)
		}
	}
	r.lru = nil
}

// release switches back to the LRU. Entries are re-added least recently used
// first; anything past capacity is evicted through the hook.
func (r *reclaimable) release() {
	if r.lru != nil {
		return
	}
	held, used := r.strong, r.used
	r.strong, r.used, r.tick = nil, nil, 0
	r.lru = r.newLRU()

	order := make([]chunk.Coord, 0, len(held))
	for pos := range held {
		order = append(order, pos)
	}
	slices.SortFunc(order, func(a, b chunk.Coord) int {
		return cmp.Compare(used[a], used[b])
	})
	for _, pos := range order {
		r.lru.Add(pos, held[pos])
	}
}

// purge drops every entry through the eviction hook.
func (r *reclaimable) purge() int {
	if r.lru == nil {
		return 0
	}
	n := r.lru.Len()
	r.lru.Purge()
	return n
}

func sortedCoords(m map[chunk.Coord]*chunk.Chunk) []chunk.Coord {
	keys := make([]chunk.Coord, 0, len(m))
	for pos := range m {
		keys = append(keys, pos)
	}
	slices.SortFunc(keys, func(a, b chunk.Coord) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Z, b.Z)
	})
	return keys
}

// evicted is the reclaimable tier's eviction hook. A chunk that picked up
// changes while filed as clean is kept in the dirty tier instead of being
// dropped. Runs with w.mu held.
func (w *World) evicted(pos chunk.Coord, c *chunk.Chunk) {
	if c.Dirty {
		w.dirty[pos] = c
	}
}

// file is the only place chunks enter a tier. The tier follows the chunk's
// dirty flag, and pos is removed from the other tier first.
func (w *World) file(pos chunk.Coord, c *chunk.Chunk) {
	w.cache.remove(pos)
	delete(w.dirty, pos)
	if c.Dirty {
		w.dirty[pos] = c
	} else {
		w.cache.add(pos, c)
	}
}

// lookup finds a resident chunk. A chunk that only survives in the
// permanent set is filed again. Callers hold w.mu.
func (w *World) lookup(pos chunk.Coord) *chunk.Chunk {
	if c, ok := w.dirty[pos]; ok {
		return c
	}
	if c, ok := w.cache.get(pos); ok {
		return c
	}
	if c, ok := w.permanent[pos]; ok {
		w.file(pos, c)
		return c
	}
	return nil
}

// resident returns both tiers merged. Callers hold w.mu.
func (w *World) resident() map[chunk.Coord]*chunk.Chunk {
	all := w.cache.entries()
	for pos, c := range w.dirty {
		all[pos] = c
	}
	return all
}

// SaveOff stops all chunk writes and pins the reclaimable tier so nothing is
// dropped while the world is inspected or backed up.
func (w *World) SaveOff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.saving {
		return
	}
	w.saving = false
	w.cache.hold()
	w.log.Info("saving disabled")
}

// SaveOn undoes SaveOff.
func (w *World) SaveOn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.saving {
		return
	}
	w.saving = true
	w.cache.release()
	w.log.Info("saving enabled")
}

// Reclaim is the memory-pressure hook: it drops the reclaimable tier. Dirty
// chunks are kept, and nothing is dropped while saving is off. It returns
// the number of chunks released.
func (w *World) Reclaim() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.saving {
		return 0
	}
	before := len(w.dirty)
	n := w.cache.purge()
	dropped := n - (len(w.dirty) - before)
	if dropped > 0 {
		w.log.Debug("reclaimed chunks", "count", dropped)
	}
	return dropped
}

// Stats is a snapshot of the cache tiers.
type Stats struct {
	Reclaimable int
	Dirty       int
	Pending     int
	Permanent   int
	Saving      bool
}

// Stats returns the current tier sizes.
func (w *World) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Reclaimable: w.cache.len(),
		Dirty:       len(w.dirty),
		Pending:     len(w.pending),
		Permanent:   len(w.permanent),
		Saving:      w.saving,
	}
}
