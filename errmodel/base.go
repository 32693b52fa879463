package errmodel

import "fmt"

// Base codes. A, C, G and T use two bits; BaseN marks an unknown base.
const (
	BaseA = byte(0)
	BaseC = byte(1)
	BaseG = byte(2)
	BaseT = byte(3)
	BaseN = byte(4)
)

// noBase is never produced by BaseCode. It marks "no previous base" in the
// per-read context.
const noBase = byte(0xff)

var asciiToBase [256]byte

func init() {
	for i := range asciiToBase {
		asciiToBase[i] = BaseN
	}
	asciiToBase['A'] = BaseA
	asciiToBase['a'] = BaseA
	asciiToBase['C'] = BaseC
	asciiToBase['c'] = BaseC
	asciiToBase['G'] = BaseG
	asciiToBase['g'] = BaseG
	asciiToBase['T'] = BaseT
	asciiToBase['t'] = BaseT
}

// BaseCode converts an ASCII base to its code. Anything other than ACGT
// (either case) maps to BaseN.
func BaseCode(ch byte) byte { return asciiToBase[ch] }

// BaseChar converts a base code to an uppercase ASCII letter.
func BaseChar(code byte) byte {
	if code > BaseN {
		return 'N'
	}
	return "ACGTN"[code]
}

// Complement returns the code of the complementary base. N stays N.
func Complement(code byte) byte {
	if code >= BaseN {
		return BaseN
	}
	return BaseT - code
}

// ErrorType is the outcome of one cycle.
type ErrorType uint8

const (
	// Undecided means no plugin has claimed the cycle yet. Model.Evaluate
	// never returns it.
	Undecided ErrorType = iota
	// NoError means the reported base is the template base.
	NoError
	// Substitution means the reported base differs from the template base.
	Substitution
	// Deletion means the template base is skipped; nothing is reported.
	Deletion
	// Insertion means a base is reported without consuming the template
	// base, so the same template position is read again next cycle.
	Insertion
)

// String implements fmt.Stringer.
func (e ErrorType) String() string {
	switch e {
	case Undecided:
		return "undecided"
	case NoError:
		return "noerror"
	case Substitution:
		return "substitution"
	case Deletion:
		return "deletion"
	case Insertion:
		return "insertion"
	}
	return fmt.Sprintf("ErrorType(%d)", int(e))
}
