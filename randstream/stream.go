// Package randstream derives reproducible pseudorandom streams, one per
// simulated fragment, from a single global seed.
//
// A stream depends only on (globalSeed, fragmentIndex). It never depends on
// wall-clock time or on the order in which other fragments are simulated, so
// fragments may be simulated in any order and in parallel.
package randstream

import "math/rand"

const (
	// seedMix is xored into the raw seed so that small seeds and fragment
	// indices do not produce near-zero generator states.
	seedMix = uint64(0x9E3779B97F4A7C15)

	// WarmupDraws is the number of values discarded from a new stream before
	// it is handed out.
	WarmupDraws = 64
)

// Seed returns the generator seed for the given fragment.
func Seed(globalSeed, fragmentIndex uint64) int64 {
	return int64(((fragmentIndex + 1) * globalSeed) ^ seedMix)
}

// New creates the stream for the given fragment.
func New(globalSeed, fragmentIndex uint64) *rand.Rand {
	r := rand.New(rand.NewSource(Seed(globalSeed, fragmentIndex)))
	for i := 0; i < WarmupDraws; i++ {
		r.Uint64()
	}
	return r
}

// Factory hands out per-fragment streams for one run. Thread safe.
type Factory struct {
	// Seed is the user-supplied global seed.
	Seed uint64
}

// Stream returns a fresh stream for the given fragment index. Repeated calls
// with the same index return streams that produce the same sequence.
func (f Factory) Stream(fragmentIndex uint64) *rand.Rand {
	return New(f.Seed, fragmentIndex)
}
