package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/seqsim/cluster"
	"github.com/grailbio/seqsim/encoding/fasta"
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/quality"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReference(t *testing.T) *fasta.Reference {
	rng := rand.New(rand.NewSource(0))
	var b strings.Builder
	for _, name := range []string{"chr1", "chr2"} {
		b.WriteString(">" + name + "\n")
		for line := 0; line < 40; line++ {
			for i := 0; i < 60; i++ {
				b.WriteByte("ACGT"[rng.Intn(4)])
			}
			b.WriteByte('\n')
		}
	}
	ref, err := fasta.New(strings.NewReader(b.String()))
	require.NoError(t, err)
	return ref
}

func testFragments(n int) []cluster.Fragment {
	frags := make([]cluster.Fragment, n)
	for i := range frags {
		frags[i] = cluster.Fragment{
			Index:  uint64(i),
			Contig: fmt.Sprintf("chr%d", i%2+1),
			Start:  (i * 7) % 2000,
			Length: 150 + i%100,
		}
	}
	return frags
}

func testModel(t *testing.T) *errmodel.Model {
	hp, err := errmodel.NewHomopolymerTable([]float64{0, 0.005, 0.05}, []float64{0, 0.005, 0.05})
	require.NoError(t, err)
	opts := errmodel.DefaultOpts
	opts.PluginOptions = []string{
		"longread-base-duplication:probability=0.01",
		"longread-deletion:probability=0.01",
	}
	m, err := errmodel.NewFromTables(context.Background(), errmodel.Tables{
		Quality:     quality.Fixed(25),
		Homopolymer: hp,
	}, opts)
	require.NoError(t, err)
	return m
}

func testOpts(t *testing.T) Opts {
	layout, err := cluster.ParseLayout("100,8i,100")
	require.NoError(t, err)
	opts := DefaultOpts
	opts.Seed = 42
	opts.Layout = layout
	opts.Cluster.Barcode = "ACGTTGCA"
	return opts
}

func TestRunParallelismInvariant(t *testing.T) {
	ctx := context.Background()
	ref, model, frags := testReference(t), testModel(t), testFragments(300)
	run := func(parallelism, batchSize int) (Summary, []uint64) {
		opts := testOpts(t)
		opts.Parallelism = parallelism
		opts.BatchSize = batchSize
		var digests []uint64
		summary, err := Run(ctx, opts, model, ref, frags, func(c *cluster.ReadCluster) error {
			expect.EQ(t, c.Fragment().Index, uint64(len(digests)))
			digests = append(digests, c.Digest())
			return nil
		})
		require.NoError(t, err)
		return summary, digests
	}
	s1, d1 := run(1, 7)
	s2, d2 := run(8, 64)
	s3, d3 := run(0, 0)
	assert.Equal(t, s1, s2)
	assert.Equal(t, s1, s3)
	assert.Equal(t, d1, d2)
	assert.Equal(t, d1, d3)

	expect.EQ(t, s1.Clusters, 300)
	expect.EQ(t, s1.Bases, int64(300*208))
	expect.True(t, s1.Errors[errmodel.Substitution] > 0)
	expect.True(t, s1.Errors[errmodel.Insertion] > 0)
	expect.True(t, s1.Errors[errmodel.Deletion] > 0)
	expect.EQ(t, s1.Errors[errmodel.NoError]+s1.Errors[errmodel.Substitution]+s1.Errors[errmodel.Insertion], s1.Bases)

	// A different seed changes the output.
	opts := testOpts(t)
	opts.Seed = 43
	s4, err := Run(ctx, opts, model, ref, frags, func(*cluster.ReadCluster) error { return nil })
	require.NoError(t, err)
	expect.NEQ(t, s4.Fingerprint, s1.Fingerprint)
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	ref, model := testReference(t), testModel(t)
	noop := func(*cluster.ReadCluster) error { return nil }

	_, err := Run(ctx, testOpts(t), model, ref, []cluster.Fragment{{Contig: "chr9", Length: 10}}, noop)
	expect.HasSubstr(t, err.Error(), "chr9")

	_, err = Run(ctx, testOpts(t), model, ref, []cluster.Fragment{{Contig: "chr1", Start: 2400, Length: 10}}, noop)
	expect.HasSubstr(t, err.Error(), "past the end")

	opts := testOpts(t)
	opts.Layout = nil
	_, err = Run(ctx, opts, model, ref, testFragments(1), noop)
	expect.NotNil(t, err)

	n := 0
	opts = testOpts(t)
	opts.BatchSize = 10
	summary, err := Run(ctx, opts, model, ref, testFragments(50), func(*cluster.ReadCluster) error {
		if n++; n == 15 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	expect.EQ(t, err.Error(), "stop")
	expect.EQ(t, summary.Clusters, 15)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Run(cctx, testOpts(t), model, ref, testFragments(5), noop)
	expect.EQ(t, err, context.Canceled)
}
