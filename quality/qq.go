package quality

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqsim/util"
)

// QQTable maps qualities to error probabilities and back. The zero value is
// not usable; see PhredQQTable and ReadQQTable. Immutable after construction.
type QQTable struct {
	prob [NumQualities]float64
}

// PhredQQTable returns the standard relationship p = 10^(-q/10).
func PhredQQTable() *QQTable {
	t := &QQTable{}
	for q := range t.prob {
		t.prob[q] = math.Pow(10, -float64(q)/10)
	}
	return t
}

type qqRow struct {
	Quality     int
	Probability float64
}

// ReadQQTable reads a headerless two-column TSV (quality, error probability).
// Qualities not listed keep their Phred value. The resulting table must be
// non-increasing in quality.
func ReadQQTable(ctx context.Context, path string) (*QQTable, error) {
	t := PhredQQTable()
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var (
			row qqRow
			n   int
		)
		for {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					break
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n+1))
			}
			n++
			if row.Quality < 0 || row.Quality > MaxQuality {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: quality %d out of range", path, n, row.Quality))
			}
			if row.Probability < 0 || row.Probability > 1 {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: probability %v out of range", path, n, row.Probability))
			}
			t.prob[row.Quality] = row.Probability
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for q := 1; q < NumQualities; q++ {
		if t.prob[q] > t.prob[q-1] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: error probability increases from quality %d (%v) to %d (%v)",
				path, q-1, t.prob[q-1], q, t.prob[q]))
		}
	}
	return t, nil
}

// NewQQTable creates a table from explicit per-quality probabilities. It is
// mostly useful in tests.
func NewQQTable(prob [NumQualities]float64) *QQTable {
	return &QQTable{prob: prob}
}

// ErrorProbability returns the error probability of quality q. q is clamped
// to [0, MaxQuality].
func (t *QQTable) ErrorProbability(q int) float64 {
	return t.prob[clamp(q, 0, MaxQuality)]
}

// Quality returns the quality whose error probability is closest to p on a
// log scale. Ties resolve to the lower quality.
func (t *QQTable) Quality(p float64) int {
	if p <= 0 {
		return MaxQuality
	}
	lp := math.Log(p)
	best, bestDist := 0, math.Inf(1)
	for q, qp := range t.prob {
		var d float64
		if qp <= 0 {
			d = math.Inf(1)
		} else {
			d = math.Abs(math.Log(qp) - lp)
		}
		if d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}
