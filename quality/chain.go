package quality

import (
	"fmt"
	"math/rand"

	"github.com/grailbio/seqsim/util"
)

// Model generates the quality of the next cycle of a read given the quality
// of the previous cycle. Implementations are immutable after construction and
// safe for concurrent use; all randomness comes from rng.
type Model interface {
	// Next returns the quality at the given 1-based cycle. prev is the
	// quality emitted at the previous cycle of the same read, or 0 at the
	// first cycle.
	Next(rng *rand.Rand, cycle, prev int) int
}

// Chain is a Model holding one distribution per (cycle, previous quality).
type Chain struct {
	first, last int
	// rows[c-first][prev] is the distribution for cycle c. Entries for
	// previous qualities without their own counts share the marginal
	// distribution of the cycle.
	rows [][NumQualities]*util.Discrete
}

// NewChain builds a Chain from a table.
func NewChain(t *Table) (*Chain, error) {
	first, last, err := t.cycleRange()
	if err != nil {
		return nil, err
	}
	m := &Chain{first: first, last: last, rows: make([][NumQualities]*util.Discrete, last-first+1)}
	for cycle := first; cycle <= last; cycle++ {
		marginalCounts, conditionedCounts := t.rows(cycle)
		marginal, err := util.NewDiscrete(marginalCounts.nonZero())
		if err != nil {
			return nil, fmt.Errorf("quality cycle %d: %v", cycle, err)
		}
		row := &m.rows[cycle-first]
		for prev := range row {
			if c := conditionedCounts[prev]; c != nil {
				if row[prev], err = util.NewDiscrete(c.nonZero()); err != nil {
					return nil, fmt.Errorf("quality cycle %d, previous quality %d: %v", cycle, prev, err)
				}
				continue
			}
			row[prev] = marginal
		}
	}
	return m, nil
}

// Next implements Model.
func (m *Chain) Next(rng *rand.Rand, cycle, prev int) int {
	cycle = clamp(cycle, m.first, m.last)
	return m.rows[cycle-m.first][clamp(prev, 0, MaxQuality)].Sample(rng)
}

// Fixed is a Model that always returns the same quality. It consumes no
// randomness.
type Fixed int

// Next implements Model.
func (f Fixed) Next(rng *rand.Rand, cycle, prev int) int { return int(f) }
