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

// HomopolymerTable holds indel probabilities indexed by homopolymer run
// length. Index 0 is unused.
type HomopolymerTable struct {
	deletion  []float64
	insertion []float64
}

// NewHomopolymerTable creates a table. deletion[i] and insertion[i] are the
// probabilities at run length i; run lengths past the end use the last entry.
func NewHomopolymerTable(deletion, insertion []float64) (*HomopolymerTable, error) {
	if len(deletion) != len(insertion) {
		return nil, fmt.Errorf("homopolymer table: %d deletion but %d insertion entries", len(deletion), len(insertion))
	}
	for i := range deletion {
		if deletion[i] < 0 || insertion[i] < 0 || deletion[i]+insertion[i] > 1 {
			return nil, fmt.Errorf("homopolymer table: invalid probabilities %v/%v at length %d", deletion[i], insertion[i], i)
		}
	}
	return &HomopolymerTable{deletion: deletion, insertion: insertion}, nil
}

type homopolymerRow struct {
	Length      int
	Probability float64
}

// ReadHomopolymerTable reads a headerless TSV "length\tprobability". Each row
// sets both the deletion and the insertion probability at that run length.
// Lengths that are not listed get probability zero.
func ReadHomopolymerTable(ctx context.Context, path string) (*HomopolymerTable, error) {
	var probs []float64
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var row homopolymerRow
		for n := 1; ; n++ {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					return nil
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n))
			}
			if row.Length < 1 {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: run length %d", path, n, row.Length))
			}
			for len(probs) <= row.Length {
				probs = append(probs, 0)
			}
			probs[row.Length] = row.Probability
		}
	})
	if err != nil {
		return nil, err
	}
	if len(probs) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: empty homopolymer table", path))
	}
	t, err := NewHomopolymerTable(probs, append([]float64(nil), probs...))
	if err != nil {
		return nil, errors.E(err, path)
	}
	return t, nil
}

func (t *HomopolymerTable) lookup(length int) (deletion, insertion float64) {
	if t == nil || len(t.deletion) == 0 {
		return 0, 0
	}
	if length >= len(t.deletion) {
		length = len(t.deletion) - 1
	}
	return t.deletion[length], t.insertion[length]
}

type homopolymerPlugin struct {
	table *HomopolymerTable
}

func (p *homopolymerPlugin) Name() string { return "homopolymer-indel" }

// Apply may claim a deletion or insertion for an undecided call, with the
// probability of the current run length. The direction of the first indel in
// a run is kept for the rest of the run.
func (p *homopolymerPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	hp := &ctx.Homopolymer
	if call.Type != Undecided || call.RefBase >= BaseN {
		return
	}
	del, ins := p.table.lookup(hp.Length)
	if del+ins <= 0 {
		return
	}
	r := rng.Float64()
	switch hp.Direction {
	case 0:
		if r < del {
			call.Type, hp.Direction = Deletion, -1
		} else if r < del+ins {
			call.Type, hp.Direction = Insertion, 1
		}
	case -1:
		if r < del+ins {
			call.Type = Deletion
		}
	default:
		if r < del+ins {
			call.Type = Insertion
		}
	}
}
