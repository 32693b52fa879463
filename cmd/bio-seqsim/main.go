package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/seqsim/cluster"
	"github.com/grailbio/seqsim/errmodel"
	"github.com/grailbio/seqsim/simulate"
)

// stringList is a flag that may be repeated.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	referencePath = flag.String("reference", "", "Reference FASTA path (required)")
	fragmentPath  = flag.String("fragments", "", "Fragment TSV path, one 'contig<TAB>start<TAB>length' per line (required)")
	layout        = flag.String("layout", "151,8i,8i,151", "Comma-separated read lengths; a trailing 'i' marks an index read")
	outPrefix     = flag.String("out", "bio-seqsim", "Output path prefix")
	compression   = flag.String("compression", "", "Output compression: '', 'gzip' (.fastq.gz) or 'snappy' (framed, .fastq.sz)")
	seed          = flag.Uint64("seed", simulate.DefaultOpts.Seed, "Global random seed")
	parallelism   = flag.Int("parallelism", 0, "Number of clusters simulated concurrently; 0 = runtime.NumCPU()")
	batchSize     = flag.Int("batch-size", simulate.DefaultOpts.BatchSize, "Number of clusters simulated between writes")
	barcode       = flag.String("barcode", "", "Template of the index reads")
	dropLastBase  = flag.Bool("drop-last-base", false, "Leave the last cycle of every read unsimulated")

	qualityTables         stringList
	flatQualityModel      = flag.Bool("flat-quality-model", errmodel.DefaultOpts.FlatQualityModel, "Use the single-array quality chain")
	flatQualityTable      = flag.String("flat-quality-table", errmodel.DefaultOpts.FlatQualityTable, "Flattened cumulative-count quality table; replaces -quality-table")
	fixedQuality          = flag.Int("fixed-quality", errmodel.DefaultOpts.FixedQuality, "Quality of every cycle when no -quality-table is given")
	qqTable               = flag.String("qq-table", errmodel.DefaultOpts.QQTable, "Quality to error probability table; Phred if empty")
	mismatchTable         = flag.String("mismatch-table", errmodel.DefaultOpts.MismatchTable, "Substitution weights per template base; uniform if empty")
	homopolymerIndelTable = flag.String("homopolymer-indel-table", errmodel.DefaultOpts.HomopolymerIndelTable, "Indel probability per homopolymer run length")
	motifQualityDropTable = flag.String("motif-quality-drop-table", errmodel.DefaultOpts.MotifQualityDropTable, "Repeated motifs and the quality drops they cause")
	randomDropProbability = flag.Float64("random-drop-probability", errmodel.DefaultOpts.RandomDropProbability, "Per-cycle probability of a random quality drop")
	randomDropLength      = flag.Int("random-drop-length", errmodel.DefaultOpts.RandomDropLength, "Cycles covered by a random quality drop")
	randomDropQuality     = flag.Int("random-drop-quality", errmodel.DefaultOpts.RandomDropQuality, "Quality during a random quality drop")
	glitchProbability     = flag.Float64("glitch-probability", errmodel.DefaultOpts.GlitchProbability, "Per-cycle probability of a quality glitch")
	glitchQuality         = flag.Int("glitch-quality", errmodel.DefaultOpts.GlitchQuality, "Quality of a glitched cycle")
	phasingRate           = flag.Float64("phasing-rate", errmodel.DefaultOpts.PhasingRate, "Per-cycle probability of one more point of phasing quality loss")
	maxPhasingDrop        = flag.Int("max-phasing-drop", errmodel.DefaultOpts.MaxPhasingDrop, "Upper bound on phasing quality loss")
	errorModelOptions     stringList
)

func init() {
	flag.Var(&qualityTables, "quality-table", "Quality table path, optionally suffixed with @<cycle offset>. May be repeated")
	flag.Var(&errorModelOptions, "error-model-options", "Enable and configure an optional error model, as <pluginId>:<key>=<value>[:<key>=<value>...]. May be repeated")
}

func bioSeqsimUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -reference ref.fa -fragments fragments.tsv\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioSeqsimUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		log.Fatalf("Unexpected positional arguments: '%s'", strings.Join(flag.Args(), " "))
	}
	if *referencePath == "" || *fragmentPath == "" {
		log.Fatalf("-reference and -fragments are required")
	}
	l, err := cluster.ParseLayout(*layout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := runOpts{
		referencePath: *referencePath,
		fragmentPath:  *fragmentPath,
		outPrefix:     *outPrefix,
		compression:   *compression,
		model: errmodel.Opts{
			QualityTables:         qualityTables,
			FlatQualityModel:      *flatQualityModel,
			FlatQualityTable:      *flatQualityTable,
			FixedQuality:          *fixedQuality,
			QQTable:               *qqTable,
			MismatchTable:         *mismatchTable,
			HomopolymerIndelTable: *homopolymerIndelTable,
			MotifQualityDropTable: *motifQualityDropTable,
			RandomDropProbability: *randomDropProbability,
			RandomDropLength:      *randomDropLength,
			RandomDropQuality:     *randomDropQuality,
			GlitchProbability:     *glitchProbability,
			GlitchQuality:         *glitchQuality,
			PhasingRate:           *phasingRate,
			MaxPhasingDrop:        *maxPhasingDrop,
			PluginOptions:         errorModelOptions,
		},
		sim: simulate.Opts{
			Seed:        *seed,
			Layout:      l,
			Parallelism: *parallelism,
			BatchSize:   *batchSize,
			Cluster: cluster.Opts{
				DropLastBase: *dropLastBase,
				Barcode:      *barcode,
			},
		},
	}
	summary, err := run(vcontext.Background(), opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("bio-seqsim: %v", summary)
	log.Debug.Printf("exiting")
}
