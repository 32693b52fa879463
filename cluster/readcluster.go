package cluster

import (
	"encoding/binary"
	"math/rand"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqsim/errmodel"
)

// Fragment is a template interval chosen to become a cluster.
type Fragment struct {
	// Index is the ordinal of the fragment in the run. It selects the random
	// stream.
	Index uint64
	// Contig names the reference sequence.
	Contig string
	// Start is the 0-based position of the first template base.
	Start int
	// Length is the number of template bases.
	Length int
}

// Sequence supplies reference bases as ASCII letters.
type Sequence interface {
	Len() int
	At(pos int) byte
}

// Evaluator decides the outcome of one cycle. *errmodel.Model implements it.
type Evaluator interface {
	Evaluate(rng *rand.Rand, cycle int, refBase byte, ctx *errmodel.Context) errmodel.Call
}

// Opts controls cluster simulation.
type Opts struct {
	// DropLastBase leaves the last cycle of every read unsimulated. Its slot in
	// the base-call buffer holds NoCall.
	DropLastBase bool
	// Barcode is the template of the index reads. Index cycles past its end
	// read N.
	Barcode string
}

// Read describes one simulated read of a cluster.
type Read struct {
	ReadDescription
	// Reverse is set for reads simulated from the reverse complement of the
	// fragment.
	Reverse bool
	// Pos is the 0-based leftmost template position covered by the read. For
	// index reads it is relative to the barcode.
	Pos int
	// RefLen is the number of template bases consumed.
	RefLen int
	// Cigar is in read orientation, in the order the cycles were simulated.
	Cigar sam.Cigar
	// Errors counts cycle outcomes, indexed by errmodel.ErrorType.
	Errors [errmodel.Insertion + 1]int
	// Glitches is the number of quality glitches in the read.
	Glitches int
	// PhasingDrop is the phasing quality loss reached at the end of the read.
	PhasingDrop int
}

// RefCigar returns the CIGAR in reference orientation.
func (r *Read) RefCigar() sam.Cigar {
	if !r.Reverse {
		return r.Cigar
	}
	c := make(sam.Cigar, len(r.Cigar))
	for i, op := range r.Cigar {
		c[len(c)-1-i] = op
	}
	return c
}

// Bases returns the number of output cycles the read produced.
func (r *Read) Bases() int {
	n := 0
	for _, op := range r.Cigar {
		if t := op.Type(); t == sam.CigarMatch || t == sam.CigarInsertion {
			n += op.Len()
		}
	}
	return n
}

// ReadCluster simulates all reads of one fragment. Simulation runs on the
// first call to any accessor and the result is kept. A ReadCluster is not
// safe for concurrent use.
type ReadCluster struct {
	frag   Fragment
	layout Layout
	seq    Sequence
	model  Evaluator
	rng    *rand.Rand
	opts   Opts

	evaluated bool
	buf       []byte
	reads     []Read
}

// New creates an unevaluated cluster. rng must be private to the cluster;
// seq may be nil when the layout has only index reads.
func New(frag Fragment, layout Layout, seq Sequence, model Evaluator, rng *rand.Rand, opts Opts) *ReadCluster {
	return &ReadCluster{
		frag:   frag,
		layout: layout,
		seq:    seq,
		model:  model,
		rng:    rng,
		opts:   opts,
	}
}

// Fragment returns the fragment the cluster was built from.
func (c *ReadCluster) Fragment() Fragment { return c.frag }

// Layout returns the read layout.
func (c *ReadCluster) Layout() Layout { return c.layout }

// template returns the base code at offset pos of a read's template.
type template func(pos int) byte

func (c *ReadCluster) forward(pos int) byte {
	if pos >= c.frag.Length {
		return errmodel.BaseN
	}
	return c.refBase(c.frag.Start + pos)
}

func (c *ReadCluster) reverse(pos int) byte {
	if pos >= c.frag.Length {
		return errmodel.BaseN
	}
	return errmodel.Complement(c.refBase(c.frag.Start + c.frag.Length - 1 - pos))
}

func (c *ReadCluster) barcode(pos int) byte {
	if pos >= len(c.opts.Barcode) {
		return errmodel.BaseN
	}
	return errmodel.BaseCode(c.opts.Barcode[pos])
}

func (c *ReadCluster) refBase(pos int) byte {
	if pos < 0 || pos >= c.seq.Len() {
		return errmodel.BaseN
	}
	return errmodel.BaseCode(c.seq.At(pos))
}

func appendCigarOp(cigar sam.Cigar, t sam.CigarOpType) sam.Cigar {
	if n := len(cigar); n > 0 && cigar[n-1].Type() == t {
		cigar[n-1] = sam.NewCigarOp(t, cigar[n-1].Len()+1)
		return cigar
	}
	return append(cigar, sam.NewCigarOp(t, 1))
}

func (c *ReadCluster) evaluate() {
	if c.evaluated {
		return
	}
	c.evaluated = true
	c.buf = make([]byte, c.layout.Cycles())
	c.reads = make([]Read, len(c.layout))
	var (
		ctx    errmodel.Context
		filled int
		strand int
	)
	for i, rd := range c.layout {
		r := &c.reads[i]
		r.ReadDescription = rd
		var tmpl template
		switch {
		case rd.IsIndex:
			tmpl = c.barcode
		case strand%2 == 0:
			tmpl = c.forward
			strand++
		default:
			tmpl, r.Reverse = c.reverse, true
			strand++
		}
		last := rd.LastCycle
		if c.opts.DropLastBase {
			c.buf[last-1] = NoCall
			filled++
			last--
		}

		ctx.InitialiseForNewRead()
		pos := 0
		for cycle := rd.FirstCycle; cycle <= last; cycle++ {
			call := c.model.Evaluate(c.rng, cycle, tmpl(pos), &ctx)
			switch call.Type {
			case errmodel.NoError, errmodel.Substitution:
				c.buf[cycle-1] = Pack(call.Base, call.Quality)
				filled++
				pos++
				r.Cigar = appendCigarOp(r.Cigar, sam.CigarMatch)
			case errmodel.Insertion:
				c.buf[cycle-1] = Pack(call.Base, call.Quality)
				filled++
				r.Cigar = appendCigarOp(r.Cigar, sam.CigarInsertion)
			case errmodel.Deletion:
				// The same output cycle is retried on the next template base.
				pos++
				cycle--
				r.Cigar = appendCigarOp(r.Cigar, sam.CigarDeletion)
			default:
				log.Panicf("fragment %d (%s:%d) cycle %d: unexpected outcome %v",
					c.frag.Index, c.frag.Contig, c.frag.Start, cycle, call.Type)
			}
			r.Errors[call.Type]++
		}
		if last >= rd.FirstCycle && len(r.Cigar) == 0 {
			log.Panicf("fragment %d (%s:%d) read %d: no cigar", c.frag.Index, c.frag.Contig, c.frag.Start, i)
		}
		r.RefLen = pos
		r.Glitches = ctx.Glitch.Count
		r.PhasingDrop = ctx.Phasing.Drop
		if r.Reverse {
			r.Pos = c.frag.Start + c.frag.Length - r.RefLen
		} else if !rd.IsIndex {
			r.Pos = c.frag.Start
		}
	}
	if filled != len(c.buf) {
		log.Panicf("fragment %d (%s:%d): filled %d of %d base calls",
			c.frag.Index, c.frag.Contig, c.frag.Start, filled, len(c.buf))
	}
}

func (c *ReadCluster) read(i int) *Read {
	c.evaluate()
	if i < 0 || i >= len(c.reads) {
		log.Panicf("fragment %d: read %d out of range [0,%d)", c.frag.Index, i, len(c.reads))
	}
	return &c.reads[i]
}

// BaseCalls returns the packed base-call buffer of the whole cluster, one
// byte per cycle. The caller must not modify it.
func (c *ReadCluster) BaseCalls() []byte {
	c.evaluate()
	return c.buf
}

// Cigar returns the CIGAR of read i in read orientation.
func (c *ReadCluster) Cigar(i int) sam.Cigar { return c.read(i).Cigar }

// Read returns the metadata of read i, indexed like the layout.
func (c *ReadCluster) Read(i int) Read { return *c.read(i) }

// calls returns the simulated slice of the buffer for read i.
func (c *ReadCluster) calls(i int) []byte {
	r := c.read(i)
	return c.buf[r.FirstCycle-1 : r.FirstCycle-1+r.Bases()]
}

// Nucleotides returns the bases of read i as ASCII letters.
func (c *ReadCluster) Nucleotides(i int) []byte {
	calls := c.calls(i)
	seq := make([]byte, len(calls))
	for j, b := range calls {
		base, _ := Unpack(b)
		seq[j] = errmodel.BaseChar(base)
	}
	return seq
}

// Qualities returns the qualities of read i as raw values in [0,63].
func (c *ReadCluster) Qualities(i int) []byte {
	calls := c.calls(i)
	quals := make([]byte, len(calls))
	for j, b := range calls {
		_, q := Unpack(b)
		quals[j] = byte(q)
	}
	return quals
}

// Digest returns a hash of the base-call buffer and all CIGARs. Equal
// digests mean byte-identical simulation output.
func (c *ReadCluster) Digest() uint64 {
	c.evaluate()
	h := seahash.New()
	h.Write(c.buf)
	var word [4]byte
	for i := range c.reads {
		binary.LittleEndian.PutUint32(word[:], uint32(len(c.reads[i].Cigar)))
		h.Write(word[:])
		for _, op := range c.reads[i].Cigar {
			binary.LittleEndian.PutUint32(word[:], uint32(op))
			h.Write(word[:])
		}
	}
	return h.Sum64()
}
