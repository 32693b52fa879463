package errmodel

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqsim/util"
)

// maxMotifBases is the longest repeated motif that fits in MotifState.Kmer.
const maxMotifBases = 32

// MotifQualityDrop is the quality profile caused by one repeated motif.
type MotifQualityDrop struct {
	// Motif is the repeated unit, e.g. "GGC".
	Motif string
	// Repeats is the number of consecutive copies of Motif that trigger the
	// drop.
	Repeats int
	// Drop is subtracted from the quality of the cycle that completes the
	// repeat.
	Drop int
	// ShortTerm[i] is subtracted from the quality i+1 cycles later, unless
	// another motif hit replaces it.
	ShortTerm []int
}

type motifKey struct {
	length int
	kmer   uint64
}

// MotifTable maps repeated k-mers to quality drops. Immutable after
// construction; Contexts hold pointers into it.
type MotifTable struct {
	entries []MotifQualityDrop
	// lengths lists the distinct key lengths, longest first.
	lengths []int
	index   map[motifKey]int
}

func encodeKmer(seq string) (uint64, bool) {
	var k uint64
	for i := 0; i < len(seq); i++ {
		b := BaseCode(seq[i])
		if b == BaseN {
			return 0, false
		}
		k = k<<2 | uint64(b)
	}
	return k, true
}

func kmerMask(length int) uint64 {
	if length >= maxMotifBases {
		return ^uint64(0)
	}
	return uint64(1)<<(2*uint(length)) - 1
}

// NewMotifTable creates a table. When two entries expand to the same
// sequence, the later one wins.
func NewMotifTable(entries []MotifQualityDrop) (*MotifTable, error) {
	t := &MotifTable{
		entries: append([]MotifQualityDrop(nil), entries...),
		index:   map[motifKey]int{},
	}
	seen := map[int]bool{}
	for i, e := range t.entries {
		if e.Repeats < 1 {
			return nil, fmt.Errorf("motif %s: repeat count %d", e.Motif, e.Repeats)
		}
		seq := strings.Repeat(e.Motif, e.Repeats)
		if len(seq) == 0 || len(seq) > maxMotifBases {
			return nil, fmt.Errorf("motif %s x%d: length must be in [1,%d]", e.Motif, e.Repeats, maxMotifBases)
		}
		kmer, ok := encodeKmer(seq)
		if !ok {
			return nil, fmt.Errorf("motif %s: only ACGT allowed", e.Motif)
		}
		t.index[motifKey{len(seq), kmer}] = i
		if !seen[len(seq)] {
			seen[len(seq)] = true
			t.lengths = append(t.lengths, len(seq))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(t.lengths)))
	return t, nil
}

// Len returns the number of entries.
func (t *MotifTable) Len() int { return len(t.entries) }

// lookup returns the entry matching the longest suffix of the given k-mer, or
// nil.
func (t *MotifTable) lookup(kmer uint64, length int) *MotifQualityDrop {
	if t == nil {
		return nil
	}
	for _, l := range t.lengths {
		if l > length {
			continue
		}
		if i, ok := t.index[motifKey{l, kmer & kmerMask(l)}]; ok {
			return &t.entries[i]
		}
	}
	return nil
}

type motifRow struct {
	Motif     string
	Repeats   int
	Drop      int
	ShortTerm string
}

func parseShortTerm(s string) ([]int, error) {
	if s == "" || s == "-" {
		return nil, nil
	}
	var profile []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("negative drop %d", v)
		}
		profile = append(profile, v)
	}
	return profile, nil
}

// ReadMotifTable reads a headerless TSV "motif\trepeats\tdrop\tshortTerm".
// shortTerm is a comma-separated list of per-cycle carry-over drops, or "-".
func ReadMotifTable(ctx context.Context, path string) (*MotifTable, error) {
	var entries []MotifQualityDrop
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var row motifRow
		for n := 1; ; n++ {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					return nil
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n))
			}
			if row.Drop < 0 {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: negative drop %d", path, n, row.Drop))
			}
			profile, err := parseShortTerm(row.ShortTerm)
			if err != nil {
				return errors.E(err, fmt.Sprintf("%s: row %d: short-term profile '%s'", path, n, row.ShortTerm))
			}
			entries = append(entries, MotifQualityDrop{
				Motif:     strings.ToUpper(row.Motif),
				Repeats:   row.Repeats,
				Drop:      row.Drop,
				ShortTerm: profile,
			})
		}
	})
	if err != nil {
		return nil, err
	}
	t, err := NewMotifTable(entries)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return t, nil
}

type motifPlugin struct {
	table *MotifTable
}

func (p *motifPlugin) Name() string { return "motif-quality-drop" }

// Apply applies either a fresh motif drop, when the template k-mer ends in a
// listed motif, or the next step of the previous motif's carry-over. A
// re-read template base cannot start a new drop.
func (p *motifPlugin) Apply(rng *rand.Rand, call *Call, ctx *Context) {
	st := &ctx.Motif
	var e *MotifQualityDrop
	if !ctx.Template.Reread {
		e = p.table.lookup(st.Kmer, st.Length)
	}
	if e != nil {
		st.Effect, st.Step, st.DropLevel = e, 0, e.Drop
	} else if st.Effect != nil && st.Step < len(st.Effect.ShortTerm) {
		st.DropLevel = st.Effect.ShortTerm[st.Step]
		st.Step++
	} else {
		st.Effect, st.Step, st.DropLevel = nil, 0, 0
	}
	if st.DropLevel > 0 {
		call.Quality = lowerQuality(call.Quality, st.DropLevel)
	}
}
