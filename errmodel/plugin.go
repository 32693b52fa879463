package errmodel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/grailbio/seqsim/quality"
)

// MinQuality is the lowest quality a quality perturbation can produce.
const MinQuality = 2

// Call is the decision for one cycle. Plugins receive a pointer to it and may
// change Type (only while it is Undecided), Base, and Quality.
type Call struct {
	// Cycle is the 1-based output cycle being simulated.
	Cycle int
	// RefBase is the template base code at the current template position.
	RefBase byte
	// ErrorRate is the substitution probability implied by the chain quality.
	ErrorRate float64
	// Quality is the quality reported for this cycle.
	Quality int
	Type    ErrorType
	// Base is the reported base code.
	Base byte
}

// Plugin is one error source in the Model's chain. Implementations hold only
// immutable configuration; all mutable state is in the Context.
type Plugin interface {
	// Name is the identifier used in logs and in -error-model-options.
	Name() string
	// Apply inspects and possibly updates the call. It must draw randomness
	// only from rng.
	Apply(rng *rand.Rand, call *Call, ctx *Context)
}

// preemptor is implemented by plugins that can force the outcome of a cycle
// before any other plugin runs.
type preemptor interface {
	Plugin
	// preempt returns true if it decided the call. The rest of the chain is
	// then skipped.
	preempt(call *Call, ctx *Context) bool
}

// lowerQuality returns q reduced by drop, clamped to [MinQuality, MaxQuality].
// A quality already below MinQuality is left unchanged.
func lowerQuality(q, drop int) int {
	if q <= MinQuality {
		return q
	}
	q -= drop
	if q < MinQuality {
		return MinQuality
	}
	if q > quality.MaxQuality {
		return quality.MaxQuality
	}
	return q
}

// capQuality returns min(q, limit), without going below MinQuality unless q
// already is.
func capQuality(q, limit int) int {
	if limit < MinQuality {
		limit = MinQuality
	}
	if q > limit {
		return limit
	}
	return q
}

// checkProbability returns an error unless p is in [0,1]. NaN is rejected.
func checkProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s: probability %v out of range [0,1]", name, p)
	}
	return nil
}
