// Package quality implements the per-cycle base-quality Markov chain used by
// the error model, and the mapping between quality values and error
// probabilities.
//
// A quality table is built from text files with one line per cycle. Each
// line holds tab-separated tokens:
//
//   q:count        marginal occurrence count of quality q at this cycle
//   prev:q:count   count of quality q following quality prev
//
// For example the line "2:10\t30:980\t30:2:5\t30:30:900" describes a cycle
// where quality 30 mostly follows quality 30. Empty lines and lines starting
// with '#' are ignored.
//
// A FlatChain can also be read directly from a flattened table of
// cumulative counts, one row per (cycle, previous quality, quality); see
// ReadFlatChain.
package quality
