package gen

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldstore/internal/server/world/chunk"
)

var ErrUnknownStage = errors.New("unknown generator stage")

// Stage fills part of an unpopulated chunk. Populate must be a pure function
// of the chunk's coordinates, its current contents and the seed, so the same
// pipeline can run on a worker and on the world's own goroutine with
// identical results.
type Stage interface {
	Name() string
	Populate(c *chunk.Chunk, seed int64)
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// DefaultStages is the stage list used when none is configured.
var DefaultStages = []string{"terrain", "caves", "ores", "trees"}

var stages = map[string]func() Stage{
	"terrain": func() Stage { return terrainStage{} },
	"caves":   func() Stage { return caveStage{} },
	"ores":    func() Stage { return oreStage{} },
	"trees":   func() Stage { return treeStage{} },
	"flat":    func() Stage { return flatStage{} },
}

// Lookup builds a pipeline from stage names, in order.
func Lookup(names []string) (Pipeline, error) {
	p := make(Pipeline, 0, len(names))
	for _, name := range names {
		mk, ok := stages[name]
		if !ok {
			return nil, fmt.Errorf("stage %q: %w", name, ErrUnknownStage)
		}
		p = append(p, mk())
	}
	return p, nil
}

// Names returns the stage names of p.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name()
	}
	return names
}

// Run populates c with every stage and rebuilds its derived data.
// It does not touch the chunk's Populated or Dirty flags.
func (p Pipeline) Run(c *chunk.Chunk, seed int64) {
	for _, s := range p {
		s.Populate(c, seed)
	}
	c.Regenerate()
}
