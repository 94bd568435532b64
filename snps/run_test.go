package snps_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/strainlab/midas2/encoding/fasta"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/snps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBowtie2Build = `#!/bin/sh
exit 0
`

// fakeBowtie2 ignores the reads and emits a canned SAM file.
const fakeBowtie2 = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -S) out="$2"; shift 2;;
    *) shift;;
  esac
done
cp "$BOWTIE2_FAKE_SAM" "$out"
`

func installFakeBowtie2(t *testing.T, sam string) {
	bin := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(bin, "bowtie2-build"), []byte(fakeBowtie2Build), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(bin, "bowtie2"), []byte(fakeBowtie2), 0755))
	samPath := filepath.Join(bin, "fake.sam")
	require.NoError(t, ioutil.WriteFile(samPath, []byte(sam), 0644))
	t.Setenv("BOWTIE2_FAKE_SAM", samPath)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRun(t *testing.T) {
	sam := "@SQ\tSN:c1\tLN:8\n" +
		"read1\t0\tc1\t1\t42\t4M\t*\t0\t0\tACGT\t*\n"
	installFakeBowtie2(t, sam)

	root, cleanup := testutil.TempDir(t, "", "midasdb")
	t.Cleanup(func() { testutil.NoCleanupOnError(t, cleanup, root) })
	layout := midasdb.Layout{Root: root}
	centroids := layout.PangenomeFile("100001", "centroids.ffn")
	require.NoError(t, os.MkdirAll(filepath.Dir(centroids), 0777))
	require.NoError(t, ioutil.WriteFile(centroids, []byte(">c1\nACGTACGT\n"), 0644))

	reads := filepath.Join(t.TempDir(), "sample1_R1.fastq")
	require.NoError(t, ioutil.WriteFile(reads, []byte("@read1\nACGT\n+\nIIII\n"), 0644))

	outDir := t.TempDir()
	opts := snps.DefaultOpts
	opts.ScratchDir = t.TempDir()
	opts.Threads = 1
	r := snps.Runner{Layout: layout, Opts: opts}
	require.NoError(t, r.Run(context.Background(), "sample1", reads, "", []string{"100001"}, outDir))

	pileup, err := ioutil.ReadFile(filepath.Join(outDir, "100001", snps.PileupName))
	require.NoError(t, err)
	want := "ref_id\tref_pos\tref_allele\tdepth\tcount_a\tcount_c\tcount_g\tcount_t\n" +
		"c1\t1\tA\t1\t1\t0\t0\t0\n" +
		"c1\t2\tC\t1\t0\t1\t0\t0\n" +
		"c1\t3\tG\t1\t0\t0\t1\t0\n" +
		"c1\t4\tT\t1\t0\t0\t0\t1\n"
	assert.Equal(t, want, string(pileup))

	summary, err := ioutil.ReadFile(filepath.Join(outDir, snps.SummaryName))
	require.NoError(t, err)
	wantSummary := "species_id\tgenome_length\tcovered_bases\tfraction_covered\tmean_coverage\taligned_reads\n" +
		"100001\t8\t4\t0.500000\t0.500000\t1\n"
	assert.Equal(t, wantSummary, string(summary))
}

func TestRunMissingPangenome(t *testing.T) {
	installFakeBowtie2(t, "@SQ\tSN:c1\tLN:8\n")
	layout := midasdb.Layout{Root: t.TempDir()}
	opts := snps.DefaultOpts
	opts.ScratchDir = t.TempDir()
	r := snps.Runner{Layout: layout, Opts: opts}
	err := r.Run(context.Background(), "sample1", "reads.fq", "", []string{"100001"}, t.TempDir())
	assert.Error(t, err)
}

func TestRunNoSpecies(t *testing.T) {
	installFakeBowtie2(t, "")
	r := snps.Runner{Layout: midasdb.Layout{Root: t.TempDir()}, Opts: snps.DefaultOpts}
	err := r.Run(context.Background(), "sample1", "reads.fq", "", nil, t.TempDir())
	assert.Error(t, err)
}

func TestWritePileupNoCoverage(t *testing.T) {
	ctx := context.Background()
	p := snps.NewPileup([]fasta.Record{{ID: "c1", Seq: "ACGT"}})
	dir := t.TempDir()
	path := filepath.Join(dir, snps.PileupName)
	require.NoError(t, snps.WritePileup(ctx, path, p))
	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	// Header only: no covered sites.
	assert.Equal(t, 1, strings.Count(string(got), "\n"))
}

func TestWriteSummary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, snps.SummaryName)
	require.NoError(t, snps.WriteSummary(ctx, path, []snps.Summary{
		{SpeciesID: "100001", GenomeLength: 8, CoveredBases: 4, FractionCovered: 0.5, MeanCoverage: 1.25, AlignedReads: 3},
		{SpeciesID: "100002", GenomeLength: 4},
	}))
	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	want := "species_id\tgenome_length\tcovered_bases\tfraction_covered\tmean_coverage\taligned_reads\n" +
		"100001\t8\t4\t0.500000\t1.250000\t3\n" +
		"100002\t4\t0\t0.000000\t0.000000\t0\n"
	assert.Equal(t, want, string(got))
}
