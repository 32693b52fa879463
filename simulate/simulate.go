// Package simulate runs the read-cluster simulation over a list of
// fragments.
package simulate

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/seqsim/cluster"
	"github.com/grailbio/seqsim/encoding/fasta"
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/randstream"
	"v.io/x/lib/vlog"
)

// Opts configures Run.
type Opts struct {
	// Seed is the global seed. Together with the fragment index it determines
	// the random stream of every cluster.
	Seed uint64
	// Layout is the read layout of every cluster.
	Layout cluster.Layout
	// Cluster is passed to every cluster.
	Cluster cluster.Opts
	// Parallelism is the number of clusters simulated concurrently. Zero means
	// one per CPU.
	Parallelism int
	// BatchSize is the number of clusters simulated before they are emitted.
	BatchSize int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Seed:      1,
	BatchSize: 4096,
}

// Summary describes a finished run.
type Summary struct {
	Clusters int
	// Bases is the number of simulated output cycles.
	Bases int64
	// Errors counts cycle outcomes, indexed by errmodel.ErrorType.
	Errors [errmodel.Insertion + 1]int64
	// Fingerprint changes if any base call or CIGAR of any cluster changes.
	Fingerprint uint64
}

func (s *Summary) add(c *cluster.ReadCluster) {
	s.Clusters++
	for i := range c.Layout() {
		r := c.Read(i)
		s.Bases += int64(r.Bases())
		for t, n := range r.Errors {
			s.Errors[t] += int64(n)
		}
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], s.Fingerprint)
	binary.LittleEndian.PutUint64(buf[8:], c.Digest())
	s.Fingerprint = farm.Fingerprint64(buf[:])
}

// String renders the summary for logging.
func (s Summary) String() string {
	return fmt.Sprintf("%d clusters, %d bases, %d substitutions, %d insertions, %d deletions, fingerprint %016x",
		s.Clusters, s.Bases, s.Errors[errmodel.Substitution], s.Errors[errmodel.Insertion], s.Errors[errmodel.Deletion], s.Fingerprint)
}

// Run simulates one cluster per fragment and calls emit on each, in fragment
// order. The clusters of a batch are simulated in parallel; emit is never
// called concurrently. Run stops at the first error returned by emit, or when
// ctx is done.
func Run(ctx context.Context, opts Opts, model cluster.Evaluator, ref *fasta.Reference, frags []cluster.Fragment, emit func(*cluster.ReadCluster) error) (Summary, error) {
	var summary Summary
	if err := opts.Layout.Validate(); err != nil {
		return summary, errors.E(errors.Invalid, err)
	}
	seqs := make([]cluster.Sequence, len(frags))
	for i, f := range frags {
		if ref == nil {
			return summary, errors.E(errors.Invalid, "simulate: no reference")
		}
		c, err := ref.Contig(f.Contig)
		if err != nil {
			return summary, errors.E(errors.NotExist, fmt.Sprintf("fragment %d", f.Index), err)
		}
		if f.Start >= c.Len() {
			return summary, errors.E(errors.Invalid, fmt.Sprintf("fragment %d starts at %d, past the end of %s (%d)", f.Index, f.Start, f.Contig, c.Len()))
		}
		seqs[i] = c
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultOpts.BatchSize
	}
	streams := randstream.Factory{Seed: opts.Seed}
	log.Printf("simulate: %d fragments, layout %v, %d jobs", len(frags), opts.Layout, parallelism)

	batch := make([]*cluster.ReadCluster, 0, batchSize)
	for start := 0; start < len(frags); start += batchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		end := start + batchSize
		if end > len(frags) {
			end = len(frags)
		}
		batch = batch[:end-start]
		nJobs := parallelism
		if nJobs > len(batch) {
			nJobs = len(batch)
		}
		err := traverse.Each(nJobs, func(jobIdx int) error {
			lo := (jobIdx * len(batch)) / nJobs
			hi := ((jobIdx + 1) * len(batch)) / nJobs
			for i := lo; i < hi; i++ {
				f := frags[start+i]
				c := cluster.New(f, opts.Layout, seqs[start+i], model, streams.Stream(f.Index), opts.Cluster)
				c.BaseCalls()
				batch[i] = c
			}
			return nil
		})
		if err != nil {
			return summary, err
		}
		vlog.VI(1).Infof("simulate: fragments [%d,%d) done", start, end)
		for i, c := range batch {
			summary.add(c)
			if err := emit(c); err != nil {
				return summary, err
			}
			batch[i] = nil
		}
	}
	log.Debug.Printf("simulate: %v", summary)
	return summary, nil
}
