package snps

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/strainlab/midas2/encoding/fasta"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/shell"
)

// Runner aligns one sample's reads against species pangenomes and writes
// pileup and summary outputs.
type Runner struct {
	Layout midasdb.Layout
	Opts   Opts
}

// SummaryName is the cross-species output written at the end of a run.
const SummaryName = "snps_summary.tsv"

// PileupName is the per-species output.
const PileupName = "snps_pileup.tsv"

// Run processes the sample's reads (r2 may be empty for single-end data)
// against each of the given species.  Species run one at a time; bowtie2
// already consumes every thread it is given.  Outputs go under
// outDir/<speciesID>/ with the cross-species summary at outDir/snps_summary.tsv.
func (r *Runner) Run(ctx context.Context, sample, r1, r2 string, speciesIDs []string, outDir string) error {
	if err := shell.Lookup("bowtie2", "bowtie2-build"); err != nil {
		return err
	}
	if len(speciesIDs) == 0 {
		return errors.E("no species selected for sample", sample)
	}
	// bowtie2 reads the FASTQ files from the per-species scratch dir.
	var err error
	if r1, err = filepath.Abs(r1); err != nil {
		return err
	}
	if r2 != "" {
		if r2, err = filepath.Abs(r2); err != nil {
			return err
		}
	}
	summaries := make([]Summary, 0, len(speciesIDs))
	for _, speciesID := range speciesIDs {
		summary, err := r.runSpecies(ctx, sample, r1, r2, speciesID, outDir)
		if err != nil {
			return errors.E(err, "run_snps", sample, "species", speciesID)
		}
		summaries = append(summaries, summary)
	}
	return WriteSummary(ctx, file.Join(outDir, SummaryName), summaries)
}

func (r *Runner) runSpecies(ctx context.Context, sample, r1, r2, speciesID, outDir string) (Summary, error) {
	log.Printf("Aligning sample %s to species %s pangenome.", sample, speciesID)
	dir := filepath.Join(r.Opts.ScratchDir, speciesID)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return Summary{}, err
	}
	if !r.Opts.Debug {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Error.Printf("remove scratch dir %s: %v", dir, err)
			}
		}()
	}

	centroidsPath := filepath.Join(dir, "centroids.ffn")
	if err := midasdb.Copy(ctx, r.Layout.PangenomeFile(speciesID, "centroids.ffn"), centroidsPath); err != nil {
		return Summary{}, err
	}
	centroids, err := readCentroids(centroidsPath)
	if err != nil {
		return Summary{}, err
	}

	threads := strconv.Itoa(r.Opts.threads())
	if err := shell.Run(ctx, shell.Opts{Dir: dir},
		"bowtie2-build", "--threads", threads, "-q", "centroids.ffn", "index"); err != nil {
		return Summary{}, err
	}
	args := []string{"-x", "index", "-p", threads, "--no-unal", "-S", "aligned.sam"}
	if r2 == "" {
		args = append(args, "-U", r1)
	} else {
		args = append(args, "-1", r1, "-2", r2)
	}
	if err := shell.Run(ctx, shell.Opts{Dir: dir}, "bowtie2", args...); err != nil {
		return Summary{}, err
	}

	pileup := NewPileup(centroids)
	sam, err := os.Open(filepath.Join(dir, "aligned.sam"))
	if err != nil {
		return Summary{}, err
	}
	stats, err := pileup.AddSAM(sam, r.Opts.Mapq)
	if cerr := sam.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return Summary{}, err
	}
	log.Printf("Species %s: %d alignments tallied (%d unmapped, %d secondary, %d low mapq skipped).",
		speciesID, stats.AlignedReads, stats.SkippedUnmapped, stats.SkippedSecondary, stats.SkippedLowMapq)

	if err := WritePileup(ctx, file.Join(outDir, speciesID, PileupName), pileup); err != nil {
		return Summary{}, err
	}
	return pileup.Summarize(speciesID, stats.AlignedReads), nil
}

func readCentroids(path string) ([]fasta.Record, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	sc := fasta.NewScanner(in)
	var (
		recs []fasta.Record
		rec  fasta.Record
	)
	for sc.Scan(&rec) {
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read centroids", path)
	}
	if len(recs) == 0 {
		return nil, errors.E("empty centroids file", path)
	}
	return recs, nil
}
