package errmodel

import "math/rand"

type randomDropPlugin struct {
	probability float64
	length      int
	quality     int
}

func (p *randomDropPlugin) Name() string { return "random-quality-drop" }

// Apply starts a drop with the configured probability. While a drop lasts
// the quality is capped at the drop quality.
func (p *randomDropPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	st := &ctx.RandomDrop
	if st.Remaining == 0 && p.probability > 0 && rng.Float64() < p.probability {
		st.Remaining = p.length
	}
	if st.Remaining > 0 {
		st.Remaining--
		call.Quality = capQuality(call.Quality, p.quality)
	}
}

type glitchPlugin struct {
	probability float64
	quality     int
}

func (p *glitchPlugin) Name() string { return "quality-glitch" }

// Apply caps the quality of a single cycle.
func (p *glitchPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	if p.probability > 0 && rng.Float64() < p.probability {
		ctx.Glitch.Count++
		call.Quality = capQuality(call.Quality, p.quality)
	}
}

type phasingPlugin struct {
	rate    float64
	maxDrop int
}

func (p *phasingPlugin) Name() string { return "phasing" }

// Apply lets the read fall further out of phase with probability rate, then
// lowers the quality by the accumulated drop.
func (p *phasingPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	st := &ctx.Phasing
	if p.rate > 0 && st.Drop < p.maxDrop && rng.Float64() < p.rate {
		st.Drop++
	}
	if st.Drop > 0 {
		call.Quality = lowerQuality(call.Quality, st.Drop)
	}
}
