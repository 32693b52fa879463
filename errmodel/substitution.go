package errmodel

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqsim/util"
)

// MismatchTable holds, per template base, the distribution of the base
// reported on a substitution.
type MismatchTable struct {
	rows [4]*util.Discrete
}

var allBases = []int{int(BaseA), int(BaseC), int(BaseG), int(BaseT)}

// NewMismatchTable creates a table from weights indexed [template][reported].
// The diagonal is ignored. A nil row means the three other bases are equally
// likely.
func NewMismatchTable(weights [4][]float64) (*MismatchTable, error) {
	t := &MismatchTable{}
	for ref := range weights {
		w := weights[ref]
		if w == nil {
			w = []float64{1, 1, 1, 1}
		}
		if len(w) != 4 {
			return nil, fmt.Errorf("mismatch row %c: expect 4 weights, found %d", BaseChar(byte(ref)), len(w))
		}
		row := append([]float64(nil), w...)
		row[ref] = 0
		d, err := util.NewDiscreteFromProbabilities(allBases, row)
		if err != nil {
			return nil, fmt.Errorf("mismatch row %c: %v", BaseChar(byte(ref)), err)
		}
		t.rows[ref] = d
	}
	return t, nil
}

// UniformMismatchTable returns a table where every substitution is equally
// likely.
func UniformMismatchTable() *MismatchTable {
	t, err := NewMismatchTable([4][]float64{})
	if err != nil {
		panic(err)
	}
	return t
}

type mismatchRow struct {
	Ref        string
	A, C, G, T float64
}

// ReadMismatchTable reads a headerless TSV with one row per template base:
// "ref\tA\tC\tG\tT". Missing rows are uniform.
func ReadMismatchTable(ctx context.Context, path string) (*MismatchTable, error) {
	var weights [4][]float64
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var row mismatchRow
		for n := 1; ; n++ {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					return nil
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n))
			}
			if len(row.Ref) != 1 || BaseCode(row.Ref[0]) == BaseN {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: invalid base '%s'", path, n, row.Ref))
			}
			weights[BaseCode(row.Ref[0])] = []float64{row.A, row.C, row.G, row.T}
		}
	})
	if err != nil {
		return nil, err
	}
	t, err := NewMismatchTable(weights)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return t, nil
}

// sample draws the reported base for a substitution of ref.
func (t *MismatchTable) sample(rng *rand.Rand, ref byte) byte {
	return byte(t.rows[ref].Sample(rng))
}

type substitutionPlugin struct {
	table *MismatchTable
}

func (p *substitutionPlugin) Name() string { return "substitution" }

// Apply draws a mismatch with probability call.ErrorRate. Without a mismatch
// the template base is passed through and the call stays undecided.
func (p *substitutionPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	if call.RefBase >= BaseN {
		call.Base = BaseN
		return
	}
	call.Base = call.RefBase
	if call.Type != Undecided || call.ErrorRate <= 0 {
		return
	}
	if rng.Float64() < call.ErrorRate {
		call.Type = Substitution
		call.Base = p.table.sample(rng, call.RefBase)
	}
}
