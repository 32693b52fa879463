// Package fastq renders simulated clusters as FASTQ records.
package fastq

import (
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/seqsim/cluster"
	"github.com/pkg/errors"
)

var newline = []byte{'\n'}

// QualityOffset is added to each quality value to form the quality line
// (Phred+33).
const QualityOffset = 33

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// FromCluster returns one FASTQ read per non-index read of c, in layout
// order. The ID carries the fragment position, strand and reference-oriented
// CIGAR of the read, followed by the index read sequences, e.g.
//
//   @sim:12:chr1:101:-:3M1I4M 2:N:0:ACGTACGT+TTGGCCAA
//
// Positions are 1-based.
func FromCluster(name string, c *cluster.ReadCluster) []Read {
	var (
		layout  = c.Layout()
		frag    = c.Fragment()
		indexes []string
		reads   []Read
	)
	for i, rd := range layout {
		if rd.IsIndex {
			indexes = append(indexes, string(c.Nucleotides(i)))
		}
	}
	comment := "N:0:" + strings.Join(indexes, "+")
	for i, rd := range layout {
		if rd.IsIndex {
			continue
		}
		r := c.Read(i)
		strand := "+"
		if r.Reverse {
			strand = "-"
		}
		quals := c.Qualities(i)
		for j := range quals {
			quals[j] += QualityOffset
		}
		reads = append(reads, Read{
			ID: "@" + name + ":" + strconv.FormatUint(frag.Index, 10) + ":" + frag.Contig + ":" +
				strconv.Itoa(r.Pos+1) + ":" + strand + ":" + r.RefCigar().String() +
				" " + strconv.Itoa(len(reads)+1) + ":" + comment,
			Seq:  string(c.Nucleotides(i)),
			Unk:  "+",
			Qual: string(quals),
		})
	}
	return reads
}

// Writer is a FASTQ file writer.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format.
// An error is returned if the write failed or the read is malformed.
func (w *Writer) Write(r *Read) error {
	if w.err == nil {
		if !strings.HasPrefix(r.ID, "@") || !strings.HasPrefix(r.Unk, "+") {
			w.err = errors.Errorf("fastq: malformed read %q", r.ID)
		} else if len(r.Seq) != len(r.Qual) {
			w.err = errors.Errorf("fastq: read %s: %d bases but %d qualities", r.ID, len(r.Seq), len(r.Qual))
		}
	}
	w.writeln(r.ID)
	w.writeln(r.Seq)
	w.writeln(r.Unk)
	w.writeln(r.Qual)
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
	if w.err != nil {
		w.err = errors.Wrap(w.err, "fastq write")
	}
}
