package catalog

import (
	"fmt"
	"math/rand/v2"
)

// Sampler draws catalog entries in proportion to their weights. The
// expansion table is built once and owned by the sampler; each entry index
// appears Weight times.
type Sampler struct {
	defs  []Definition
	table []int
	rng   *rand.Rand
}

// NewSampler builds the expansion table for defs. Entries with a
// non-positive weight are never drawn.
func NewSampler(defs []Definition, rng *rand.Rand) (*Sampler, error) {
	table := make([]int, 0, TotalWeight(defs))
	for i, d := range defs {
		for j := 0; j < d.Weight; j++ {
			table = append(table, i)
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("catalog sampler: no entry with positive weight")
	}
	return &Sampler{defs: defs, table: table, rng: rng}, nil
}

// Sample returns one entry.
func (s *Sampler) Sample() Definition {
	return s.defs[s.table[s.rng.IntN(len(s.table))]]
}

// Definitions returns the entries the sampler draws from.
func (s *Sampler) Definitions() []Definition { return s.defs }
