package cluster

import (
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/quality"
)

// NoCall is the packed byte of an N.
const NoCall = byte(0)

// Pack encodes a base code and a quality into one byte: the base in the low
// two bits and the quality in the high six bits. Qualities are clamped to
// [1, quality.MaxQuality], since quality 0 would make the byte of an A
// collide with NoCall.
func Pack(base byte, q int) byte {
	if base >= errmodel.BaseN {
		return NoCall
	}
	if q < 1 {
		q = 1
	} else if q > quality.MaxQuality {
		q = quality.MaxQuality
	}
	return base | byte(q)<<2
}

// Unpack is the inverse of Pack.
func Unpack(b byte) (base byte, q int) {
	if b == NoCall {
		return errmodel.BaseN, 0
	}
	return b & 3, int(b >> 2)
}
