// Package fragment reads the template intervals that become clusters.
package fragment

import (
	"context"
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqsim/cluster"
	"github.com/grailbio/seqsim/util"
	"github.com/pkg/errors"
)

type row struct {
	Contig string
	Start  int
	Length int
}

// Parse reads a headerless TSV "contig\tstart\tlength" with 0-based starts.
// Lines starting with '#' are ignored. Fragment indices are assigned in file
// order starting from zero.
func Parse(in io.Reader, name string) ([]cluster.Fragment, error) {
	r := tsv.NewReader(in)
	r.Comment = '#'
	var (
		frags []cluster.Fragment
		v     row
	)
	for n := 1; ; n++ {
		if err := r.Read(&v); err != nil {
			if err == io.EOF {
				return frags, nil
			}
			return nil, errors.Wrapf(err, "%s: row %d", name, n)
		}
		if v.Contig == "" || v.Start < 0 || v.Length <= 0 {
			return nil, errors.Errorf("%s: row %d: invalid fragment %s:%d+%d", name, n, v.Contig, v.Start, v.Length)
		}
		frags = append(frags, cluster.Fragment{
			Index:  uint64(len(frags)),
			Contig: v.Contig,
			Start:  v.Start,
			Length: v.Length,
		})
	}
}

// Read reads a fragment file, which may be compressed. See Parse.
func Read(ctx context.Context, path string) ([]cluster.Fragment, error) {
	var frags []cluster.Fragment
	err := util.ReadPath(ctx, path, func(r io.Reader) (err error) {
		frags, err = Parse(r, path)
		return err
	})
	return frags, err
}
