package cluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/quality"
	"github.com/grailbio/seqsim/randstream"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringSeq string

func (s stringSeq) Len() int        { return len(s) }
func (s stringSeq) At(pos int) byte { return s[pos] }

// scripted emits the template base at quality 30, except for the outcomes
// listed in script, which are keyed by cycle and consumed once each.
type scripted struct {
	script map[int][]errmodel.ErrorType
	calls  int
}

func (s *scripted) Evaluate(rng *rand.Rand, cycle int, refBase byte, ctx *errmodel.Context) errmodel.Call {
	s.calls++
	call := errmodel.Call{Cycle: cycle, RefBase: refBase, Base: refBase, Quality: 30, Type: errmodel.NoError}
	if q := s.script[cycle]; len(q) > 0 {
		call.Type = q[0]
		s.script[cycle] = q[1:]
	}
	return call
}

func mustLayout(t *testing.T, s string) Layout {
	l, err := ParseLayout(s)
	require.NoError(t, err)
	require.NoError(t, l.Validate())
	return l
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("151,8i,8i,151")
	require.NoError(t, err)
	expect.EQ(t, l, Layout{
		{FirstCycle: 1, LastCycle: 151},
		{FirstCycle: 152, LastCycle: 159, IsIndex: true},
		{FirstCycle: 160, LastCycle: 167, IsIndex: true},
		{FirstCycle: 168, LastCycle: 318},
	})
	expect.EQ(t, l.Cycles(), 318)
	expect.EQ(t, l.NumReads(), 2)
	expect.EQ(t, l.String(), "151,8i,8i,151")
	expect.NoError(t, l.Validate())

	for _, bad := range []string{"", "0", "12,x", "8ii", "-3"} {
		_, err := ParseLayout(bad)
		expect.NotNil(t, err, bad)
	}
	expect.NotNil(t, Layout{}.Validate())
	expect.NotNil(t, Layout{{FirstCycle: 2, LastCycle: 5}}.Validate())
	expect.NotNil(t, Layout{{FirstCycle: 1, LastCycle: 5}, {FirstCycle: 5, LastCycle: 8}}.Validate())
	expect.NotNil(t, Layout{{FirstCycle: 1, LastCycle: 0}}.Validate())
}

func TestPack(t *testing.T) {
	for base := errmodel.BaseA; base <= errmodel.BaseT; base++ {
		for _, q := range []int{1, 2, 30, 63} {
			b, gotQ := Unpack(Pack(base, q))
			expect.EQ(t, b, base)
			expect.EQ(t, gotQ, q)
		}
	}
	expect.EQ(t, Pack(errmodel.BaseG, 30), byte(2|30<<2))
	expect.EQ(t, Pack(errmodel.BaseN, 30), NoCall)
	for base := errmodel.BaseA; base <= errmodel.BaseT; base++ {
		for _, q := range []int{0, -5} {
			expect.NEQ(t, Pack(base, q), NoCall)
			b, gotQ := Unpack(Pack(base, q))
			expect.EQ(t, b, base)
			expect.EQ(t, gotQ, 1)
		}
	}
	b, q := Unpack(Pack(errmodel.BaseT, 99))
	expect.EQ(t, b, errmodel.BaseT)
	expect.EQ(t, q, quality.MaxQuality)
	b, q = Unpack(NoCall)
	expect.EQ(t, b, errmodel.BaseN)
	expect.EQ(t, q, 0)
}

// forcedSubstitutionModel substitutes T with G at cycle 4 and reports
// everything else error free.
func forcedSubstitutionModel(t *testing.T, cycles int) *errmodel.Model {
	tbl := quality.NewTable()
	for cycle := 1; cycle <= cycles; cycle++ {
		q := 40
		if cycle == 4 {
			q = 5
		}
		tbl.Add(cycle, -1, q, 1)
	}
	chain, err := quality.NewChain(tbl)
	require.NoError(t, err)
	var prob [quality.NumQualities]float64
	prob[5] = 1
	mismatch, err := errmodel.NewMismatchTable([4][]float64{3: {0, 0, 1, 0}})
	require.NoError(t, err)
	m, err := errmodel.NewFromTables(context.Background(), errmodel.Tables{
		Quality:  chain,
		QQ:       quality.NewQQTable(prob),
		Mismatch: mismatch,
	}, errmodel.Opts{})
	require.NoError(t, err)
	return m
}

func TestForcedSubstitution(t *testing.T) {
	ref := stringSeq("ACGTACGT")
	c := New(Fragment{Contig: "chr1", Length: 8}, mustLayout(t, "8"), ref, forcedSubstitutionModel(t, 8), randstream.New(1, 0), Opts{})
	expect.EQ(t, string(c.Nucleotides(0)), "ACGGACGT")
	expect.EQ(t, c.Qualities(0), []byte{40, 40, 40, 5, 40, 40, 40, 40})
	expect.EQ(t, c.Cigar(0), sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 8)})
	r := c.Read(0)
	expect.EQ(t, r.RefLen, 8)
	expect.EQ(t, r.Errors[errmodel.Substitution], 1)
	expect.EQ(t, r.Errors[errmodel.NoError], 7)
}

func TestScriptedInsertion(t *testing.T) {
	ref := stringSeq("ACGTACGT")
	model := &scripted{script: map[int][]errmodel.ErrorType{4: {errmodel.Insertion}}}
	c := New(Fragment{Length: 8}, mustLayout(t, "8"), ref, model, randstream.New(1, 0), Opts{})
	expect.EQ(t, len(c.BaseCalls()), 8)
	expect.EQ(t, string(c.Nucleotides(0)), "ACGTTACG")
	expect.EQ(t, c.Cigar(0).String(), "3M1I4M")
	expect.EQ(t, c.Read(0).RefLen, 7)
}

func TestScriptedDeletion(t *testing.T) {
	ref := stringSeq("ACGTACGTAC")
	model := &scripted{script: map[int][]errmodel.ErrorType{4: {errmodel.Deletion, errmodel.Deletion}}}
	c := New(Fragment{Length: 10}, mustLayout(t, "8"), ref, model, randstream.New(1, 0), Opts{})
	expect.EQ(t, string(c.Nucleotides(0)), "ACGCGTAC")
	expect.EQ(t, c.Cigar(0).String(), "3M2D5M")
	r := c.Read(0)
	expect.EQ(t, r.RefLen, 10)
	expect.EQ(t, r.Bases(), 8)
	expect.EQ(t, r.Errors[errmodel.Deletion], 2)
	// Deleted cycles are evaluated again.
	expect.EQ(t, model.calls, 10)
}

func TestMemoized(t *testing.T) {
	model := &scripted{}
	c := New(Fragment{Length: 8}, mustLayout(t, "4,4"), stringSeq("ACGTACGT"), model, randstream.New(1, 0), Opts{})
	expect.EQ(t, model.calls, 0)
	d := c.Digest()
	expect.EQ(t, model.calls, 8)
	c.BaseCalls()
	c.Cigar(1)
	c.Nucleotides(0)
	c.Qualities(1)
	c.Read(0)
	expect.EQ(t, c.Digest(), d)
	expect.EQ(t, model.calls, 8)
}

func TestStrands(t *testing.T) {
	ref := stringSeq("AACCGGTTAA")
	c := New(Fragment{Start: 2, Length: 6}, mustLayout(t, "4,3i,4"), ref, &scripted{}, randstream.New(1, 0), Opts{Barcode: "AC"})
	expect.EQ(t, string(c.Nucleotides(0)), "CCGG")
	expect.EQ(t, string(c.Nucleotides(1)), "ACN")
	expect.EQ(t, c.Qualities(1), []byte{30, 30, 0})
	expect.EQ(t, string(c.Nucleotides(2)), "AACC")

	r := c.Read(0)
	expect.False(t, r.Reverse)
	expect.EQ(t, r.Pos, 2)
	r = c.Read(1)
	expect.True(t, r.IsIndex)
	expect.EQ(t, r.Pos, 0)
	r = c.Read(2)
	expect.True(t, r.Reverse)
	expect.EQ(t, r.Pos, 4)
	expect.EQ(t, r.RefLen, 4)
}

func TestReverseRefCigar(t *testing.T) {
	model := &scripted{script: map[int][]errmodel.ErrorType{2: {errmodel.Insertion}}}
	c := New(Fragment{Length: 8}, mustLayout(t, "1,6"), stringSeq("ACGTACGT"), model, randstream.New(1, 0), Opts{})
	r := c.Read(1)
	expect.True(t, r.Reverse)
	expect.EQ(t, r.Cigar.String(), "1I5M")
	expect.EQ(t, r.RefCigar().String(), "5M1I")
	expect.EQ(t, r.Pos, 3)
}

func TestDropLastBase(t *testing.T) {
	c := New(Fragment{Length: 8}, mustLayout(t, "4,4"), stringSeq("ACGTACGT"), &scripted{}, randstream.New(1, 0), Opts{DropLastBase: true})
	calls := c.BaseCalls()
	expect.EQ(t, len(calls), 8)
	expect.EQ(t, calls[3], NoCall)
	expect.EQ(t, calls[7], NoCall)
	expect.EQ(t, string(c.Nucleotides(0)), "ACG")
	expect.EQ(t, string(c.Nucleotides(1)), "ACG")
	expect.EQ(t, c.Cigar(0).String(), "3M")
	expect.EQ(t, c.Read(1).RefLen, 3)
}

func TestInvalidOutcomePanics(t *testing.T) {
	model := &scripted{script: map[int][]errmodel.ErrorType{2: {errmodel.Undecided}}}
	c := New(Fragment{Length: 8}, mustLayout(t, "4"), stringSeq("ACGTACGT"), model, randstream.New(1, 0), Opts{})
	assert.Panics(t, func() { c.BaseCalls() })
}

func TestZeroErrorIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ref := make([]byte, 100)
	for i := range ref {
		ref[i] = "ACGT"[rng.Intn(4)]
	}
	m, err := errmodel.NewFromTables(context.Background(), errmodel.Tables{Quality: quality.Fixed(35)}, errmodel.Opts{})
	require.NoError(t, err)
	c := New(Fragment{Length: 100}, mustLayout(t, "100"), stringSeq(ref), m, randstream.New(7, 3), Opts{})
	expect.EQ(t, string(c.Nucleotides(0)), string(ref))
	expect.EQ(t, c.Cigar(0), sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 100)})
	for _, q := range c.Qualities(0) {
		expect.EQ(t, q, byte(35))
	}
}

func noisyModel(t *testing.T) *errmodel.Model {
	hp, err := errmodel.NewHomopolymerTable([]float64{0, 0.02, 0.2}, []float64{0, 0.02, 0.2})
	require.NoError(t, err)
	opts := errmodel.DefaultOpts
	opts.PhasingRate = 0.05
	opts.PluginOptions = []string{
		"longread-base-duplication:probability=0.03",
		"longread-deletion:probability=0.03",
	}
	m, err := errmodel.NewFromTables(context.Background(), errmodel.Tables{
		Quality:     quality.Fixed(20),
		Homopolymer: hp,
	}, opts)
	require.NoError(t, err)
	return m
}

func randomReference(n int) stringSeq {
	rng := rand.New(rand.NewSource(0))
	ref := make([]byte, n)
	for i := range ref {
		ref[i] = "ACGTN"[rng.Intn(5)]
	}
	return stringSeq(ref)
}

func TestLengthConservation(t *testing.T) {
	ref := randomReference(1000)
	layout := mustLayout(t, "60,8i,60")
	model := noisyModel(t)
	var totals [errmodel.Insertion + 1]int
	for i := 0; i < 200; i++ {
		frag := Fragment{Index: uint64(i), Start: i * 3, Length: 150}
		c := New(frag, layout, ref, model, randstream.New(11, frag.Index), Opts{Barcode: "ACGTACGT"})
		for j, rd := range layout {
			r := c.Read(j)
			var matchIns, matchDel int
			for _, op := range r.Cigar {
				switch op.Type() {
				case sam.CigarMatch:
					matchIns += op.Len()
					matchDel += op.Len()
				case sam.CigarInsertion:
					matchIns += op.Len()
				case sam.CigarDeletion:
					matchDel += op.Len()
				}
			}
			expect.EQ(t, matchIns, rd.Cycles())
			expect.EQ(t, matchDel, r.RefLen)
			expect.EQ(t, len(c.Nucleotides(j)), rd.Cycles())
			for k, n := range r.Errors {
				totals[k] += n
			}
		}
	}
	expect.True(t, totals[errmodel.Substitution] > 0)
	expect.True(t, totals[errmodel.Insertion] > 0)
	expect.True(t, totals[errmodel.Deletion] > 0)
	expect.EQ(t, totals[errmodel.Undecided], 0)
}

func TestDeterministic(t *testing.T) {
	ref := randomReference(500)
	layout := mustLayout(t, "100,6i,100")
	model := noisyModel(t)
	frag := Fragment{Index: 17, Start: 100, Length: 250}
	simulate := func(idx uint64) *ReadCluster {
		frag.Index = idx
		return New(frag, layout, ref, model, randstream.New(5, idx), Opts{Barcode: "ACGTAC"})
	}
	c0, c1 := simulate(17), simulate(17)
	expect.EQ(t, c0.BaseCalls(), c1.BaseCalls())
	expect.EQ(t, c0.Cigar(0), c1.Cigar(0))
	expect.EQ(t, c0.Cigar(2), c1.Cigar(2))
	expect.EQ(t, c0.Digest(), c1.Digest())
	expect.NEQ(t, simulate(18).Digest(), c0.Digest())
}
