package util

import (
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// ReadPath opens path, which may be local or any scheme registered with
// grailbio/base/file, and passes its contents to fn. Files with a
// compression extension (.gz, .zst, ...) are decompressed transparently.
func ReadPath(ctx context.Context, path string, fn func(r io.Reader) error) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	err = fn(r)
	if e := in.Close(ctx); e != nil && err == nil {
		err = errors.E(e, "close", path)
	}
	return err
}
