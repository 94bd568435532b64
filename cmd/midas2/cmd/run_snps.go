package cmd

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/snps"
	"v.io/x/lib/cmdline"
)

func newCmdRunSNPs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run_snps",
		Short: "Align a sample's reads to species pangenomes and tally per-site base counts",
		Long: `
Align one sample's reads against the pangenome centroids of each selected
species with bowtie2 and produce a per-species pileup (snps_pileup.tsv, one
row per covered reference position with A/C/G/T counts) plus a cross-species
coverage summary (snps_summary.tsv).

bowtie2 and bowtie2-build must be on PATH.
`,
	}
	opts := snps.DefaultOpts
	dbFlag := cmd.Flags.String("midasdb", "", "MIDASDB root: a local directory or s3:// prefix (required)")
	sampleFlag := cmd.Flags.String("sample", "", "Sample name (required)")
	r1Flag := cmd.Flags.String("1", "", "FASTQ file containing R1 reads, or all reads for single-end data (required)")
	r2Flag := cmd.Flags.String("2", "", "FASTQ file containing R2 reads; empty for single-end data")
	speciesFlag := cmd.Flags.String("species", "", "Comma-separated species ids to align against (required)")
	outDirFlag := cmd.Flags.String("outdir", "", "Output directory (required)")
	cmd.Flags.IntVar(&opts.Mapq, "mapq", opts.Mapq, "Alignments with MAPQ below this are not tallied")
	cmd.Flags.IntVar(&opts.Threads, "threads", 0, "bowtie2 thread count; 0 means all CPUs")
	cmd.Flags.StringVar(&opts.ScratchDir, "scratch-dir", "", "Directory hosting per-species scratch subdirectories (default current directory)")
	cmd.Flags.BoolVar(&opts.Debug, "debug", false, "Keep per-species scratch directories after the run")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("run_snps takes no positional arguments, but got %v", argv)
		}
		for flagName, value := range map[string]string{
			"midasdb": *dbFlag,
			"sample":  *sampleFlag,
			"1":       *r1Flag,
			"species": *speciesFlag,
			"outdir":  *outDirFlag,
		} {
			if value == "" {
				return fmt.Errorf("-%s is required", flagName)
			}
		}
		var speciesIDs []string
		for _, id := range strings.Split(*speciesFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				speciesIDs = append(speciesIDs, id)
			}
		}
		ctx := vcontext.Background()
		r := snps.Runner{Layout: midasdb.Layout{Root: *dbFlag}, Opts: opts}
		return r.Run(ctx, *sampleFlag, *r1Flag, *r2Flag, speciesIDs, *outDirFlag)
	})
	return cmd
}
