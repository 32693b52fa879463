package errmodel

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/seqsim/quality"
)

// Tables holds the lookup tables a Model reads. Nil fields get defaults:
// Phred QQ table, uniform mismatches, no homopolymer indels, no motifs.
// Quality must be set.
type Tables struct {
	Quality     quality.Model
	QQ          *quality.QQTable
	Mismatch    *MismatchTable
	Homopolymer *HomopolymerTable
	Motif       *MotifTable
}

// LoadTables reads every table named in opts. Any malformed file fails the
// whole load.
func LoadTables(ctx context.Context, opts Opts) (Tables, error) {
	var (
		t   Tables
		err error
	)
	switch {
	case opts.FlatQualityTable != "":
		if len(opts.QualityTables) > 0 {
			return t, errors.E(errors.Invalid, "errmodel: both quality tables and a flat quality table given")
		}
		log.Debug.Printf("errmodel: reading flat quality table %s", opts.FlatQualityTable)
		if t.Quality, err = quality.ReadFlatChain(ctx, opts.FlatQualityTable); err != nil {
			return t, err
		}
	case len(opts.QualityTables) == 0:
		t.Quality = quality.Fixed(opts.FixedQuality)
	default:
		table := quality.NewTable()
		for _, spec := range opts.QualityTables {
			path, offset, err := ParseQualityTableSpec(spec)
			if err != nil {
				return t, err
			}
			log.Debug.Printf("errmodel: reading quality table %s (cycle offset %d)", path, offset)
			if err := table.ReadFile(ctx, path, offset); err != nil {
				return t, err
			}
		}
		if opts.FlatQualityModel {
			t.Quality, err = quality.NewFlatChain(table)
		} else {
			t.Quality, err = quality.NewChain(table)
		}
		if err != nil {
			return t, errors.E(err, "quality tables", fmt.Sprint(opts.QualityTables))
		}
	}
	if opts.QQTable != "" {
		if t.QQ, err = quality.ReadQQTable(ctx, opts.QQTable); err != nil {
			return t, err
		}
	}
	if opts.MismatchTable != "" {
		if t.Mismatch, err = ReadMismatchTable(ctx, opts.MismatchTable); err != nil {
			return t, err
		}
	}
	if opts.HomopolymerIndelTable != "" {
		if t.Homopolymer, err = ReadHomopolymerTable(ctx, opts.HomopolymerIndelTable); err != nil {
			return t, err
		}
	}
	if opts.MotifQualityDropTable != "" {
		if t.Motif, err = ReadMotifTable(ctx, opts.MotifQualityDropTable); err != nil {
			return t, err
		}
		log.Debug.Printf("errmodel: read %d motifs from %s", t.Motif.Len(), opts.MotifQualityDropTable)
	}
	return t, nil
}

// Model is the per-cycle decision point. It is immutable after construction
// and safe for concurrent use as long as each goroutine passes its own rng
// and Context.
type Model struct {
	quality    quality.Model
	qq         *quality.QQTable
	chain      []Plugin
	preemptors []preemptor
	warnings   []string
}

// New loads all tables named in opts and builds a Model.
func New(ctx context.Context, opts Opts) (*Model, error) {
	tables, err := LoadTables(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewFromTables(ctx, tables, opts)
}

// NewFromTables builds a Model from loaded tables. Table paths in opts are
// ignored; ctx is used only to read files named in opts.PluginOptions.
// Unused plugin options are logged and available from Warnings.
func NewFromTables(ctx context.Context, t Tables, opts Opts) (*Model, error) {
	if t.Quality == nil {
		return nil, errors.E(errors.Invalid, "errmodel: no quality model")
	}
	if t.QQ == nil {
		t.QQ = quality.PhredQQTable()
	}
	if t.Mismatch == nil {
		t.Mismatch = UniformMismatchTable()
	}
	for _, c := range []struct {
		name string
		p    float64
	}{
		{"random quality drop", opts.RandomDropProbability},
		{"quality glitch", opts.GlitchProbability},
		{"phasing", opts.PhasingRate},
	} {
		if err := checkProbability(c.name, c.p); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
	}
	m := &Model{quality: t.Quality, qq: t.QQ}
	m.chain = []Plugin{
		&substitutionPlugin{table: t.Mismatch},
		&homopolymerPlugin{table: t.Homopolymer},
		&motifPlugin{table: t.Motif},
		&randomDropPlugin{probability: opts.RandomDropProbability, length: opts.RandomDropLength, quality: opts.RandomDropQuality},
		&glitchPlugin{probability: opts.GlitchProbability, quality: opts.GlitchQuality},
		&phasingPlugin{rate: opts.PhasingRate, maxDrop: opts.MaxPhasingDrop},
	}

	cfgs, err := ParsePluginConfigs(opts.PluginOptions)
	if err != nil {
		return nil, errors.E(errors.Invalid, err)
	}
	// Optional plugins are appended in a fixed order, regardless of the
	// order of the option strings.
	for _, cfg := range cfgs {
		if cfg.ID != LongReadBaseDuplicationID {
			continue
		}
		p, err := newLongReadDuplicationPlugin(cfg)
		if err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
		m.chain = append(m.chain, p)
	}
	for _, cfg := range cfgs {
		if cfg.ID != LongReadDeletionID {
			continue
		}
		p, err := newLongReadDeletionPlugin(ctx, cfg)
		if err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
		m.chain = append(m.chain, p)
		m.preemptors = append(m.preemptors, p)
	}
	for _, cfg := range cfgs {
		switch cfg.ID {
		case LongReadBaseDuplicationID, LongReadDeletionID:
		default:
			if len(cfg.options) == 0 {
				m.warnings = append(m.warnings, fmt.Sprintf("unknown plugin %s", cfg.ID))
			}
		}
		m.warnings = append(m.warnings, cfg.Unused()...)
	}
	for _, w := range m.warnings {
		log.Error.Printf("error-model-options: ignoring %s", w)
	}
	return m, nil
}

// Warnings returns the plugin options that were not used by any plugin.
func (m *Model) Warnings() []string { return m.warnings }

// PluginNames returns the names of the plugins in chain order.
func (m *Model) PluginNames() []string {
	names := make([]string, len(m.chain))
	for i, p := range m.chain {
		names[i] = p.Name()
	}
	return names
}

// QQ returns the quality to error probability table.
func (m *Model) QQ() *quality.QQTable { return m.qq }

// Evaluate decides one cycle. refBase is the template base code at the
// current template position. After an Insertion the caller must pass the
// same template position again; after any other outcome, the next one. ctx
// must have been initialised for the current read. The returned Call never
// has Type Undecided.
func (m *Model) Evaluate(rng *rand.Rand, cycle int, refBase byte, ctx *Context) Call {
	call := Call{Cycle: cycle, RefBase: refBase, Base: refBase, Type: Undecided}
	if !ctx.Template.Reread {
		ctx.advance(refBase)
	}
	for _, p := range m.preemptors {
		if p.preempt(&call, ctx) {
			ctx.Template.Reread = false
			return call
		}
	}
	chainQuality := m.quality.Next(rng, cycle, ctx.Quality.Last)
	call.Quality = chainQuality
	call.ErrorRate = m.qq.ErrorProbability(chainQuality)
	for _, p := range m.chain {
		p.Apply(rng, &call, ctx)
	}
	if call.Type == Undecided {
		call.Type = NoError
	}
	if call.Type != Deletion {
		ctx.Quality.Last = chainQuality
	}
	ctx.Template.Reread = call.Type == Insertion
	return call
}
