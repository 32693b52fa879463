package errmodel

// TemplateState tracks whether the template position moved since the last
// call.
type TemplateState struct {
	// Reread is set by an insertion and holds through the next call, which
	// sees the same template base again and must not count it twice.
	Reread bool
}

// QualityState is the quality chain's memory.
type QualityState struct {
	// Last is the chain quality of the last cycle that produced a base, or 0
	// at the start of a read.
	Last int
}

// HomopolymerState tracks the current run of identical template bases.
type HomopolymerState struct {
	LastBase byte
	// Length is the number of consecutive LastBase seen so far.
	Length int
	// Direction is 0 until the first indel of the run, then -1 (deletion) or
	// +1 (insertion).
	Direction int
}

// MotifState tracks the trailing template k-mer and any motif quality drop
// still in effect.
type MotifState struct {
	// Kmer holds the last Length bases, two bits each, newest in the low bits.
	Kmer   uint64
	Length int
	// Effect points into the Model's motif table. It is never copied.
	Effect *MotifQualityDrop
	// Step is the next index into Effect.ShortTerm.
	Step int
	// DropLevel is the quality drop applied at the last cycle.
	DropLevel int
}

// RandomDropState tracks an ongoing random quality drop.
type RandomDropState struct {
	Remaining int
}

// GlitchState counts quality glitches in the current read.
type GlitchState struct {
	Count int
}

// PhasingState is the accumulated quality loss from phasing drift.
type PhasingState struct {
	Drop int
}

// LongReadDeletionState counts forced deletions still to be emitted.
type LongReadDeletionState struct {
	Remaining int
}

// Context is the simulation state carried from one cycle of a read to the
// next. The zero value is not ready; call InitialiseForNewRead first. A
// Context must not be shared between reads that are simulated concurrently.
type Context struct {
	Template         TemplateState
	Quality          QualityState
	Homopolymer      HomopolymerState
	Motif            MotifState
	RandomDrop       RandomDropState
	Glitch           GlitchState
	Phasing          PhasingState
	LongReadDeletion LongReadDeletionState
}

// InitialiseForNewRead resets all per-read state. It may be called any number
// of times.
func (c *Context) InitialiseForNewRead() {
	*c = Context{}
	c.Homopolymer.LastBase = noBase
}

// advance records that the template moved on to base b. It runs once per
// template base, including bases consumed by deletions.
func (c *Context) advance(b byte) {
	hp := &c.Homopolymer
	if b == hp.LastBase {
		hp.Length++
	} else {
		hp.LastBase, hp.Length, hp.Direction = b, 1, 0
	}
	m := &c.Motif
	if b >= BaseN {
		m.Kmer, m.Length = 0, 0
		return
	}
	m.Kmer = m.Kmer<<2 | uint64(b)
	if m.Length < maxMotifBases {
		m.Length++
	}
}
