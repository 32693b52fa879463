package quality

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqsim/util"
)

// span is a half-open range in FlatChain.values and FlatChain.cum.
type span struct{ begin, end int32 }

// FlatChain is a memory-lean Model. All distributions live in two flat
// arrays; each (cycle, previous quality) pair maps to a span of them.
// Sampling is draw-for-draw identical to Chain built from the same table.
type FlatChain struct {
	first, last int
	spans       []span // indexed by (cycle-first)*NumQualities + prev
	values      []uint8
	// cum holds cumulative counts, restarting at every span.
	cum []int64
}

// NewFlatChain builds a FlatChain from a table.
func NewFlatChain(t *Table) (*FlatChain, error) {
	first, last, err := t.cycleRange()
	if err != nil {
		return nil, err
	}
	m := &FlatChain{first: first, last: last, spans: make([]span, (last-first+1)*NumQualities)}
	add := func(c *counts) (span, error) {
		s := span{begin: int32(len(m.values))}
		var total int64
		for q, n := range c {
			if n == 0 {
				continue
			}
			total += n
			m.values = append(m.values, uint8(q))
			m.cum = append(m.cum, total)
		}
		s.end = int32(len(m.values))
		if total == 0 {
			return s, fmt.Errorf("all counts are zero")
		}
		return s, nil
	}
	for cycle := first; cycle <= last; cycle++ {
		marginalCounts, conditionedCounts := t.rows(cycle)
		marginal, err := add(&marginalCounts)
		if err != nil {
			return nil, fmt.Errorf("quality cycle %d: %v", cycle, err)
		}
		base := (cycle - first) * NumQualities
		for prev := 0; prev < NumQualities; prev++ {
			if c := conditionedCounts[prev]; c != nil {
				if m.spans[base+prev], err = add(c); err != nil {
					return nil, fmt.Errorf("quality cycle %d, previous quality %d: %v", cycle, prev, err)
				}
				continue
			}
			m.spans[base+prev] = marginal
		}
	}
	return m, nil
}

// Next implements Model.
func (m *FlatChain) Next(rng *rand.Rand, cycle, prev int) int {
	cycle = clamp(cycle, m.first, m.last)
	s := m.spans[(cycle-m.first)*NumQualities+clamp(prev, 0, MaxQuality)]
	cum := m.cum[s.begin:s.end]
	return int(m.values[int(s.begin)+util.SearchCumulative(cum, rng.Int63n(cum[len(cum)-1]))])
}

// flatRow is one line of a flattened quality table.
type flatRow struct {
	Cycle   int
	Prev    int
	Quality int
	Cum     int64
}

type flatKey struct{ cycle, prev int }

// flatBuilder collects consecutive rows into spans.
type flatBuilder struct {
	values []uint8
	cum    []int64
	spans  map[flatKey]span
	cur    flatKey
	begin  int
	open   bool
}

func (b *flatBuilder) close() {
	if b.open {
		b.spans[b.cur] = span{begin: int32(b.begin), end: int32(len(b.values))}
		b.open = false
	}
}

func (b *flatBuilder) add(row flatRow) error {
	if row.Cycle < 1 {
		return fmt.Errorf("cycle %d", row.Cycle)
	}
	if row.Prev < noPrev || row.Prev > MaxQuality {
		return fmt.Errorf("previous quality %d out of range [%d,%d]", row.Prev, noPrev, MaxQuality)
	}
	if row.Quality < 0 || row.Quality > MaxQuality {
		return fmt.Errorf("quality %d out of range [0,%d]", row.Quality, MaxQuality)
	}
	if row.Cum <= 0 {
		return fmt.Errorf("cumulative count %d", row.Cum)
	}
	key := flatKey{row.Cycle, row.Prev}
	if b.open && key == b.cur {
		i := len(b.values) - 1
		if row.Quality <= int(b.values[i]) || row.Cum <= b.cum[i] {
			return fmt.Errorf("cycle %d, previous quality %d: qualities and cumulative counts must increase",
				row.Cycle, row.Prev)
		}
	} else {
		b.close()
		if _, ok := b.spans[key]; ok {
			return fmt.Errorf("cycle %d, previous quality %d: rows are not contiguous", row.Cycle, row.Prev)
		}
		b.cur, b.begin, b.open = key, len(b.values), true
	}
	b.values = append(b.values, uint8(row.Quality))
	b.cum = append(b.cum, row.Cum)
	return nil
}

func (b *flatBuilder) build() (*FlatChain, error) {
	b.close()
	if len(b.spans) == 0 {
		return nil, fmt.Errorf("quality table is empty")
	}
	first, last := -1, -1
	for k := range b.spans {
		if first < 0 || k.cycle < first {
			first = k.cycle
		}
		if k.cycle > last {
			last = k.cycle
		}
	}
	m := &FlatChain{
		first:  first,
		last:   last,
		spans:  make([]span, (last-first+1)*NumQualities),
		values: b.values,
		cum:    b.cum,
	}
	for cycle := first; cycle <= last; cycle++ {
		marginal, ok := b.spans[flatKey{cycle, noPrev}]
		if !ok {
			return nil, fmt.Errorf("quality cycle %d: no marginal distribution", cycle)
		}
		base := (cycle - first) * NumQualities
		for prev := 0; prev < NumQualities; prev++ {
			if s, ok := b.spans[flatKey{cycle, prev}]; ok {
				m.spans[base+prev] = s
				continue
			}
			m.spans[base+prev] = marginal
		}
	}
	return m, nil
}

// ReadFlatChain reads a FlatChain from a flattened quality table: a
// headerless TSV "cycle\tprev\tquality\tcum". Rows with the same cycle and
// previous quality form one distribution and must be adjacent, with
// increasing qualities and cumulative counts. prev -1 is the marginal
// distribution of the cycle, which every cycle needs; it also serves the
// previous qualities without rows of their own.
func ReadFlatChain(ctx context.Context, path string) (*FlatChain, error) {
	b := flatBuilder{spans: map[flatKey]span{}}
	err := util.ReadPath(ctx, path, func(in io.Reader) error {
		r := tsv.NewReader(in)
		r.Comment = '#'
		var row flatRow
		for n := 1; ; n++ {
			if err := r.Read(&row); err != nil {
				if err == io.EOF {
					return nil
				}
				return errors.E(err, fmt.Sprintf("%s: row %d", path, n))
			}
			if err := b.add(row); err != nil {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: row %d: %v", path, n, err))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	m, err := b.build()
	if err != nil {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: %v", path, err))
	}
	return m, nil
}
