package cluster

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadDescription is the position of one read within the cycles of a
// cluster. Cycles are 1-based and inclusive.
type ReadDescription struct {
	FirstCycle int
	LastCycle  int
	// IsIndex marks an index (barcode) read.
	IsIndex bool
}

// Cycles returns the number of cycles of the read.
func (r ReadDescription) Cycles() int { return r.LastCycle - r.FirstCycle + 1 }

// Layout lists the reads of a cluster in cycle order.
type Layout []ReadDescription

// Validate checks that the reads cover cycles 1..Cycles() without gaps or
// overlaps.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("layout has no reads")
	}
	next := 1
	for i, r := range l {
		if r.FirstCycle != next {
			return fmt.Errorf("read %d: first cycle %d, expect %d", i, r.FirstCycle, next)
		}
		if r.LastCycle < r.FirstCycle {
			return fmt.Errorf("read %d: last cycle %d before first cycle %d", i, r.LastCycle, r.FirstCycle)
		}
		next = r.LastCycle + 1
	}
	return nil
}

// Cycles returns the total number of cycles, which is also the size of the
// cluster's base-call buffer.
func (l Layout) Cycles() int {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1].LastCycle
}

// NumReads returns the number of non-index reads.
func (l Layout) NumReads() int {
	n := 0
	for _, r := range l {
		if !r.IsIndex {
			n++
		}
	}
	return n
}

// ParseLayout parses a comma-separated list of read lengths, e.g.
// "151,8i,8i,151". A trailing 'i' marks an index read.
func ParseLayout(s string) (Layout, error) {
	var (
		l     Layout
		cycle = 1
	)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		isIndex := strings.HasSuffix(tok, "i")
		n, err := strconv.Atoi(strings.TrimSuffix(tok, "i"))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("layout '%s': invalid read length '%s'", s, tok)
		}
		l = append(l, ReadDescription{FirstCycle: cycle, LastCycle: cycle + n - 1, IsIndex: isIndex})
		cycle += n
	}
	return l, nil
}

// String renders the layout in the format accepted by ParseLayout.
func (l Layout) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		parts[i] = strconv.Itoa(r.Cycles())
		if r.IsIndex {
			parts[i] += "i"
		}
	}
	return strings.Join(parts, ",")
}
