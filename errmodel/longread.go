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

// Identifiers accepted in -error-model-options.
const (
	LongReadBaseDuplicationID = "longread-base-duplication"
	LongReadDeletionID        = "longread-deletion"
)

// Defaults for the long-read plugins.
const (
	DefaultLongReadDuplicationProbability = 0.001
	DefaultLongReadDeletionProbability    = 0.001
)

type longReadDuplicationPlugin struct {
	probability float64
}

func (p *longReadDuplicationPlugin) Name() string { return LongReadBaseDuplicationID }

// Apply turns an undecided cycle into an insertion of the template base.
func (p *longReadDuplicationPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	if call.Type != Undecided || call.RefBase >= BaseN || p.probability <= 0 {
		return
	}
	if rng.Float64() < p.probability {
		call.Type = Insertion
		call.Base = call.RefBase
	}
}

func newLongReadDuplicationPlugin(cfg *PluginConfig) (*longReadDuplicationPlugin, error) {
	p, err := cfg.Float("probability", DefaultLongReadDuplicationProbability)
	if err != nil {
		return nil, err
	}
	if err := checkProbability(cfg.ID, p); err != nil {
		return nil, err
	}
	return &longReadDuplicationPlugin{probability: p}, nil
}

type longReadDeletionPlugin struct {
	probability float64
	lengths     *util.Discrete
}

func (p *longReadDeletionPlugin) Name() string { return LongReadDeletionID }

// Apply, on an undecided cycle, starts a deletion run with the configured
// probability. The run length is drawn from the length distribution and the
// deletions are emitted by preempt on the following evaluations.
func (p *longReadDeletionPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	if call.Type != Undecided || p.probability <= 0 || ctx.LongReadDeletion.Remaining > 0 {
		return
	}
	if rng.Float64() < p.probability {
		ctx.LongReadDeletion.Remaining = p.lengths.Sample(rng)
	}
}

func (p *longReadDeletionPlugin) preempt(call *Call, ctx *Context) bool {
	st := &ctx.LongReadDeletion
	if st.Remaining <= 0 {
		return false
	}
	st.Remaining--
	call.Type = Deletion
	call.Base = call.RefBase
	return true
}

type lengthRow struct {
	Length      int
	Probability float64
}

// ReadDeletionLengths reads a headerless TSV "length\tprobability" into a
// distribution of deletion run lengths.
func ReadDeletionLengths(ctx context.Context, path string) (*util.Discrete, error) {
	var (
		lengths []int
		probs   []float64
	)
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var row lengthRow
		for n := 1; ; n++ {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					return nil
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n))
			}
			if row.Length < 1 {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: deletion length %d", path, n, row.Length))
			}
			lengths = append(lengths, row.Length)
			probs = append(probs, row.Probability)
		}
	})
	if err != nil {
		return nil, err
	}
	d, err := util.NewDiscreteFromProbabilities(lengths, probs)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return d, nil
}

func newLongReadDeletionPlugin(ctx context.Context, cfg *PluginConfig) (*longReadDeletionPlugin, error) {
	p, err := cfg.Float("probability", DefaultLongReadDeletionProbability)
	if err != nil {
		return nil, err
	}
	if err := checkProbability(cfg.ID, p); err != nil {
		return nil, err
	}
	plugin := &longReadDeletionPlugin{probability: p}
	if path := cfg.String("lengths", ""); path != "" {
		if plugin.lengths, err = ReadDeletionLengths(ctx, path); err != nil {
			return nil, err
		}
	} else if plugin.lengths, err = util.NewDiscrete([]int{1}, []int64{1}); err != nil {
		return nil, err
	}
	return plugin, nil
}
