// Package errmodel decides, one sequencing cycle at a time, which base a
// simulated sequencer reports, with what quality, and whether the cycle is a
// substitution, an insertion or a deletion relative to the template.
//
// A Model owns the immutable lookup tables and an ordered chain of plugins.
// Per-read state lives in a Context owned by the caller, so one Model can be
// shared by any number of goroutines, each simulating its own reads with its
// own random stream.
//
// Plugins run in a fixed order:
//
//   substitution
//   homopolymer indel
//   motif quality drop
//   random quality drop
//   quality glitch
//   phasing drift
//   long-read base duplication (opt-in)
//   long-read deletion (opt-in)
//
// The first plugin that sets Call.Type wins; later plugins only look at the
// type to decide whether they may still claim the cycle. Quality
// perturbations are applied regardless of the type.
package errmodel
