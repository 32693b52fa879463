// Package fasta loads reference sequences from FASTA files. FASTA files
// consist of a number of named sequences that may be interrupted by newlines.
// For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Sequence names are the characters after '>' up to the first space.
package fasta

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/seqsim/util"
	"github.com/pkg/errors"
)

const (
	maxLineSize = 1024 * 1024 * 300 // 300 MB
)

// Contig is one reference sequence held in memory. It implements
// cluster.Sequence.
type Contig struct {
	Name string
	seq  string
}

// Len returns the number of bases.
func (c *Contig) Len() int { return len(c.seq) }

// At returns the base at 0-based position pos, as stored in the file.
func (c *Contig) At(pos int) byte { return c.seq[pos] }

// Get returns the bases in the 0-based half-open interval [start, end).
func (c *Contig) Get(start, end int) (string, error) {
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if start < 0 || end > len(c.seq) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, c.Name, len(c.seq))
	}
	return c.seq[start:end], nil
}

// Reference is a set of named sequences. It is immutable after loading and
// safe for concurrent use.
type Reference struct {
	contigs map[string]*Contig
	names   []string
}

// New reads all the FASTA data from the given reader into memory.
func New(r io.Reader) (*Reference, error) {
	ref := &Reference{contigs: make(map[string]*Contig)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineSize)
	var (
		name    string
		started bool
		seq     strings.Builder
	)
	flush := func() error {
		if !started {
			if seq.Len() != 0 {
				return errors.Errorf("malformed FASTA file: sequence data before the first header")
			}
			return nil
		}
		if _, ok := ref.contigs[name]; ok {
			return errors.Errorf("duplicate sequence name: %s", name)
		}
		ref.contigs[name] = &Contig{Name: name, seq: seq.String()}
		ref.names = append(ref.names, name)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if err := flush(); err != nil {
				return nil, err
			}
			name = strings.Split(line[1:], " ")[0]
			started = true
		} else {
			seq.WriteString(line)
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(ref.names) == 0 {
		return nil, errors.Errorf("malformed FASTA file: no sequences")
	}
	return ref, nil
}

// ReadFile loads a FASTA file, which may be compressed, from any path
// grailbio/base/file supports.
func ReadFile(ctx context.Context, path string) (*Reference, error) {
	var ref *Reference
	err := util.ReadPath(ctx, path, func(r io.Reader) (err error) {
		ref, err = New(r)
		return errors.Wrap(err, path)
	})
	return ref, err
}

// Contig returns the named sequence.
func (r *Reference) Contig(name string) (*Contig, error) {
	c, ok := r.contigs[name]
	if !ok {
		return nil, errors.Errorf("sequence not found: %s", name)
	}
	return c, nil
}

// SeqNames returns the names of all sequences, in the order of appearance in
// the FASTA file.
func (r *Reference) SeqNames() []string {
	return r.names
}
