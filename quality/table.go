package quality

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/seqsim/util"
)

const (
	// MaxQuality is the largest representable quality. Packed base calls keep
	// six bits of quality.
	MaxQuality = 63
	// NumQualities is the number of distinct quality values.
	NumQualities = MaxQuality + 1
)

// noPrev marks marginal counts in Table.Add.
const noPrev = -1

type counts [NumQualities]int64

type cycleCounts struct {
	marginal    counts
	conditioned map[int]*counts
}

// Table accumulates quality occurrence counts per cycle, optionally
// conditioned on the previous cycle's quality. A Table is only used while
// building a Model.
type Table struct {
	cycles map[int]*cycleCounts
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{cycles: map[int]*cycleCounts{}}
}

// Add adds count occurrences of quality q at the given 1-based cycle. If
// prev is negative the count is marginal, otherwise it is conditioned on the
// previous quality being prev.
func (t *Table) Add(cycle, prev, q int, count int64) {
	c := t.cycles[cycle]
	if c == nil {
		c = &cycleCounts{conditioned: map[int]*counts{}}
		t.cycles[cycle] = c
	}
	if prev < 0 {
		c.marginal[q] += count
		return
	}
	row := c.conditioned[prev]
	if row == nil {
		row = &counts{}
		c.conditioned[prev] = row
	}
	row[q] += count
}

// Read parses a quality table. name is used only in error messages. The
// first data line describes cycle 1+cycleOffset.
func (t *Table) Read(r io.Reader, name string, cycleOffset int) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16<<20)
	lineno, cycle := 0, cycleOffset
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		cycle++
		var total int64
		for _, tok := range strings.Split(line, "\t") {
			if tok == "" {
				continue
			}
			prev, q, n, err := parseToken(tok)
			if err != nil {
				return errors.E(err, fmt.Sprintf("%s:%d: token '%s'", name, lineno, tok))
			}
			t.Add(cycle, prev, q, n)
			total += n
		}
		if total == 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("%s:%d: cycle %d has no quality counts", name, lineno, cycle))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.E(err, "read", name)
	}
	if cycle == cycleOffset {
		return errors.E(errors.Invalid, fmt.Sprintf("%s: empty quality table", name))
	}
	return nil
}

// ReadFile reads a quality table file. See Read.
func (t *Table) ReadFile(ctx context.Context, path string, cycleOffset int) error {
	return util.ReadPath(ctx, path, func(r io.Reader) error {
		return t.Read(r, path, cycleOffset)
	})
}

func parseToken(tok string) (prev, q int, n int64, err error) {
	fields := strings.Split(tok, ":")
	prev = noPrev
	switch len(fields) {
	case 2:
	case 3:
		if prev, err = parseQuality(fields[0]); err != nil {
			return
		}
		fields = fields[1:]
	default:
		err = fmt.Errorf("expect q:count or prev:q:count")
		return
	}
	if q, err = parseQuality(fields[0]); err != nil {
		return
	}
	if n, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return
	}
	if n < 0 {
		err = fmt.Errorf("negative count %d", n)
	}
	return
}

func parseQuality(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if q < 0 || q > MaxQuality {
		return 0, fmt.Errorf("quality %d out of range [0,%d]", q, MaxQuality)
	}
	return q, nil
}

// cycleRange returns the smallest and largest populated cycles, and checks
// that there are no gaps in between.
func (t *Table) cycleRange() (first, last int, err error) {
	if len(t.cycles) == 0 {
		return 0, 0, fmt.Errorf("quality table is empty")
	}
	cycles := make([]int, 0, len(t.cycles))
	for c := range t.cycles {
		cycles = append(cycles, c)
	}
	sort.Ints(cycles)
	for i := 1; i < len(cycles); i++ {
		if cycles[i] != cycles[i-1]+1 {
			return 0, 0, fmt.Errorf("quality table has no counts for cycles %d-%d", cycles[i-1]+1, cycles[i]-1)
		}
	}
	return cycles[0], cycles[len(cycles)-1], nil
}

// rows returns, for the given cycle, the marginal row (the sum of all counts
// at the cycle) and the conditioned rows indexed by previous quality. A nil
// conditioned row means the marginal row applies.
func (t *Table) rows(cycle int) (marginal counts, conditioned [NumQualities]*counts) {
	c := t.cycles[cycle]
	marginal = c.marginal
	for prev, row := range c.conditioned {
		var total int64
		for q, n := range row {
			marginal[q] += n
			total += n
		}
		if total > 0 {
			r := *row
			conditioned[prev] = &r
		}
	}
	return
}

func (c *counts) nonZero() (values []int, n []int64) {
	for q, v := range c {
		if v > 0 {
			values = append(values, q)
			n = append(n, v)
		}
	}
	return
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
