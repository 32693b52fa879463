package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/seqsim/cluster"
	"github.com/grailbio/seqsim/encoding/fasta"
	"github.com/grailbio/seqsim/encoding/fastq"
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/fragment"
	"github.com/grailbio/seqsim/simulate"
	"github.com/klauspost/compress/gzip"
)

// Output compression formats.
const (
	compressNone   = ""
	compressGzip   = "gzip"
	compressSnappy = "snappy"
)

type runOpts struct {
	referencePath string
	fragmentPath  string
	outPrefix     string
	compression   string
	model         errmodel.Opts
	sim           simulate.Opts
}

// fastqOutput is one FASTQ file being written.
type fastqOutput struct {
	path string
	f    file.File
	// zw compresses the file contents, if enabled.
	zw   io.WriteCloser
	buf  *bufio.Writer
	w    *fastq.Writer
}

func createOutput(ctx context.Context, path string, compression string) (*fastqOutput, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	out := &fastqOutput{path: path, f: f}
	var w io.Writer = f.Writer(ctx)
	switch compression {
	case compressGzip:
		out.zw = gzip.NewWriter(w)
		w = out.zw
	case compressSnappy:
		out.zw = snappy.NewBufferedWriter(w)
		w = out.zw
	}
	out.buf = bufio.NewWriterSize(w, 1<<20)
	out.w = fastq.NewWriter(out.buf)
	return out, nil
}

func (o *fastqOutput) close(ctx context.Context) error {
	er := errors.Once{}
	er.Set(o.buf.Flush())
	if o.zw != nil {
		er.Set(o.zw.Close())
	}
	er.Set(o.f.Close(ctx))
	if err := er.Err(); err != nil {
		return errors.E(err, "close", o.path)
	}
	return nil
}

func outputPath(prefix string, read int, compression string) (string, error) {
	path := fmt.Sprintf("%s_R%d.fastq", prefix, read)
	switch compression {
	case compressNone:
	case compressGzip:
		path += ".gz"
	case compressSnappy:
		path += ".sz"
	default:
		return "", errors.E(errors.Invalid, fmt.Sprintf("unknown compression '%s'", compression))
	}
	return path, nil
}

// run loads all inputs, simulates every fragment and writes the FASTQ files.
func run(ctx context.Context, opts runOpts) (summary simulate.Summary, err error) {
	model, err := errmodel.New(ctx, opts.model)
	if err != nil {
		return summary, err
	}
	log.Printf("bio-seqsim: error models %v", model.PluginNames())
	ref, err := fasta.ReadFile(ctx, opts.referencePath)
	if err != nil {
		return summary, err
	}
	frags, err := fragment.Read(ctx, opts.fragmentPath)
	if err != nil {
		return summary, err
	}
	log.Printf("bio-seqsim: read %d fragments from %s", len(frags), opts.fragmentPath)

	outputs := make([]*fastqOutput, opts.sim.Layout.NumReads())
	defer func() {
		for _, o := range outputs {
			if o == nil {
				continue
			}
			if e := o.close(ctx); e != nil && err == nil {
				err = e
			}
		}
	}()
	for i := range outputs {
		path, err := outputPath(opts.outPrefix, i+1, opts.compression)
		if err != nil {
			return summary, err
		}
		if outputs[i], err = createOutput(ctx, path, opts.compression); err != nil {
			return summary, err
		}
	}
	name := filepath.Base(opts.outPrefix)
	return simulate.Run(ctx, opts.sim, model, ref, frags, func(c *cluster.ReadCluster) error {
		for i, r := range fastq.FromCluster(name, c) {
			if err := outputs[i].w.Write(&r); err != nil {
				return errors.E(err, outputs[i].path)
			}
		}
		return nil
	})
}
