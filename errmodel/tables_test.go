package errmodel

import (
	"context"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeTable(t *testing.T, dir, name, data string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0600))
	return path
}

func TestReadMismatchTable(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := writeTable(t, tempDir, "mismatch.tsv", "# ref\tA\tC\tG\tT\nA\t9\t0\t0\t1\nc\t0\t5\t0\t0\n")
	_, err := ReadMismatchTable(ctx, path)
	// Row C has weight only on the diagonal.
	expect.HasSubstr(t, err.Error(), "mismatch.tsv")

	path = writeTable(t, tempDir, "mismatch2.tsv", "A\t9\t0\t0\t1\n")
	tbl, err := ReadMismatchTable(ctx, path)
	assert.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	seen := map[byte]bool{}
	for i := 0; i < 300; i++ {
		expect.EQ(t, tbl.sample(rng, BaseA), BaseT)
		seen[tbl.sample(rng, BaseG)] = true
	}
	expect.EQ(t, seen, map[byte]bool{BaseA: true, BaseC: true, BaseT: true})

	for i, bad := range []string{"N\t1\t1\t1\t1\n", "A\t1\t1\tx\t1\n"} {
		path = writeTable(t, tempDir, "bad.tsv", bad)
		_, err = ReadMismatchTable(ctx, path)
		expect.NotNil(t, err, "case %d", i)
	}
}

func TestReadHomopolymerTable(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := writeTable(t, tempDir, "hp.tsv", "1\t0\n2\t0.001\n4\t0.01\n")
	tbl, err := ReadHomopolymerTable(ctx, path)
	assert.NoError(t, err)
	for _, tc := range []struct {
		length int
		want   float64
	}{{1, 0}, {2, 0.001}, {3, 0}, {4, 0.01}, {10, 0.01}} {
		del, ins := tbl.lookup(tc.length)
		expect.EQ(t, del, tc.want)
		expect.EQ(t, ins, tc.want)
	}

	for i, bad := range []string{"", "0\t0.1\n", "2\tabc\n", "2\t0.7\n"} {
		path = writeTable(t, tempDir, "bad.tsv", bad)
		_, err = ReadHomopolymerTable(ctx, path)
		expect.NotNil(t, err, "case %d", i)
	}
}

func TestReadMotifTable(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := writeTable(t, tempDir, "motif.tsv", "ggc\t2\t10\t5,2\nGGT\t1\t4\t-\n")
	tbl, err := ReadMotifTable(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, tbl.Len(), 2)
	kmer, _ := encodeKmer("AGGCGGC")
	e := tbl.lookup(kmer, 7)
	expect.EQ(t, e.Motif, "GGC")
	expect.EQ(t, e.ShortTerm, []int{5, 2})
	kmer, _ = encodeKmer("AGGT")
	e = tbl.lookup(kmer, 4)
	expect.EQ(t, e.Drop, 4)
	expect.EQ(t, len(e.ShortTerm), 0)
	// Not enough bases seen yet.
	kmer, _ = encodeKmer("GGC")
	expect.True(t, tbl.lookup(kmer, 3) == nil)

	for i, bad := range []string{
		"GGC\t0\t10\t-\n",
		"GNC\t1\t10\t-\n",
		"GGC\t20\t10\t-\n",
		"GGC\t1\t10\t5,x\n",
		"GGC\t1\t-3\t-\n",
	} {
		path = writeTable(t, tempDir, "bad.tsv", bad)
		_, err = ReadMotifTable(ctx, path)
		expect.NotNil(t, err, "case %d", i)
	}
}

func TestReadDeletionLengths(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := writeTable(t, tempDir, "lengths.tsv", "1\t0.5\n5\t0.5\n")
	d, err := ReadDeletionLengths(ctx, path)
	assert.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		l := d.Sample(rng)
		expect.True(t, l == 1 || l == 5)
	}
	for i, bad := range []string{"", "0\t1\n", "1\t0\n"} {
		path = writeTable(t, tempDir, "bad.tsv", bad)
		_, err = ReadDeletionLengths(ctx, path)
		expect.NotNil(t, err, "case %d", i)
	}
}

func TestLoadTables(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	opts := DefaultOpts
	opts.QualityTables = []string{
		writeTable(t, tempDir, "q.tsv", "30:1\n30:30:1\n"),
		writeTable(t, tempDir, "qi.tsv", "20:1\n") + "@2",
	}
	opts.FlatQualityModel = true
	opts.QQTable = writeTable(t, tempDir, "qq.tsv", "30\t0.001\n")
	opts.MismatchTable = writeTable(t, tempDir, "mm.tsv", "A\t0\t1\t1\t1\n")
	opts.HomopolymerIndelTable = writeTable(t, tempDir, "hp.tsv", "1\t0\n")
	opts.MotifQualityDropTable = writeTable(t, tempDir, "motif.tsv", "GGC\t1\t3\t-\n")
	m, err := New(ctx, opts)
	assert.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	expect.EQ(t, m.quality.Next(rng, 1, 0), 30)
	expect.EQ(t, m.quality.Next(rng, 3, 30), 20)

	opts.QualityTables = []string{filepath.Join(tempDir, "missing.tsv")}
	_, err = New(ctx, opts)
	expect.HasSubstr(t, err.Error(), "missing.tsv")

	opts.QualityTables = nil
	opts.FlatQualityTable = writeTable(t, tempDir, "flat.tsv", "1\t-1\t30\t2\n1\t30\t20\t1\n1\t30\t30\t2\n")
	m, err = New(ctx, opts)
	assert.NoError(t, err)
	expect.EQ(t, m.quality.Next(rng, 1, 0), 30)
	expect.EQ(t, m.quality.Next(rng, 4, 0), 30)

	opts.QualityTables = []string{writeTable(t, tempDir, "q.tsv", "30:1\n")}
	_, err = New(ctx, opts)
	expect.HasSubstr(t, err.Error(), "flat quality table")
}
