/*
bio-seqsim simulates sequencer output for a list of template fragments. Every
fragment becomes one cluster: its reads are generated cycle by cycle through a
chain of error models (substitutions, homopolymer indels, motif and random
quality drops, quality glitches, phasing, and optional long-read duplications
and deletions), with qualities drawn from a per-cycle Markov chain.

The output is one FASTQ file per non-index read, named <out>_R1.fastq,
<out>_R2.fastq, and so on, with a .gz or .sz suffix when compressed. Index
reads are reported in the read names. The simulation is reproducible: the same seed, inputs and options always produce
the same files, regardless of -parallelism.

Sample usage:
bio-seqsim \
    --reference ref.fa \
    --fragments fragments.tsv \
    --layout 151,8i,8i,151 \
    --quality-table r1.qtable --quality-table index.qtable@151 \
    --error-model-options longread-deletion:probability=0.002:lengths=dels.tsv \
    --out sim --compression gzip

The fragment file is a headerless TSV of contig, 0-based start and length.
*/
package main
