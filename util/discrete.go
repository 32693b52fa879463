package util

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// WeightResolution is the integer count a float weight of 1.0 is scaled to
// by NewDiscreteFromProbabilities.
const WeightResolution = 1 << 40

// Discrete is an immutable discrete distribution over integer values. It
// samples with one rng.Int63n draw per call. Thread compatible; Sample only
// reads the receiver.
type Discrete struct {
	values []int
	// cum[i] is the sum of the weights of values[0..i].
	cum []int64
}

// NewDiscrete creates a distribution from integer occurrence counts.
// values and counts must have the same length. Zero counts are allowed, but
// the total must be positive.
func NewDiscrete(values []int, counts []int64) (*Discrete, error) {
	if len(values) != len(counts) {
		return nil, fmt.Errorf("discrete distribution: %d values but %d counts", len(values), len(counts))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("discrete distribution: empty table")
	}
	d := &Discrete{
		values: make([]int, 0, len(values)),
		cum:    make([]int64, 0, len(values)),
	}
	var total int64
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("discrete distribution: negative count %d for value %d", c, values[i])
		}
		if c == 0 {
			continue
		}
		if total > math.MaxInt64-c {
			return nil, fmt.Errorf("discrete distribution: total count overflows")
		}
		total += c
		d.values = append(d.values, values[i])
		d.cum = append(d.cum, total)
	}
	if total == 0 {
		return nil, fmt.Errorf("discrete distribution: all %d counts are zero", len(counts))
	}
	return d, nil
}

// NewDiscreteFromProbabilities creates a distribution from non-negative float
// weights. The weights need not sum to one; they are scaled by
// WeightResolution and rounded.
func NewDiscreteFromProbabilities(values []int, weights []float64) (*Discrete, error) {
	counts := make([]int64, len(weights))
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("discrete distribution: invalid weight %v", w)
		}
		counts[i] = int64(math.Round(w * WeightResolution))
		if counts[i] == 0 && w > 0 {
			counts[i] = 1
		}
	}
	return NewDiscrete(values, counts)
}

// Total returns the sum of all counts.
func (d *Discrete) Total() int64 { return d.cum[len(d.cum)-1] }

// Sample draws one value.
func (d *Discrete) Sample(rng *rand.Rand) int {
	return d.values[SearchCumulative(d.cum, rng.Int63n(d.Total()))]
}

// SearchCumulative returns the smallest index i such that r < cum[i]. cum
// must be strictly increasing and r must be in [0, cum[len(cum)-1]).
func SearchCumulative(cum []int64, r int64) int {
	return sort.Search(len(cum), func(i int) bool { return r < cum[i] })
}
