package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/pangenome"
	"v.io/x/lib/cmdline"
)

func newCmdBuildPangenome() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "build_pangenome",
		Short: "Build species pangenomes for a MIDASDB",
		Long: `
Build the pangenome for each selected species in a MIDASDB: pool the annotated
genes of the species' genomes, cluster them with vsearch at a series of
identity thresholds, and write the per-species pangenome files (genes.ffn,
genes.len, centroids.ffn, gene_info.txt) back into the database.

A species whose pangenome already exists in the database is skipped unless
-force is given.  vsearch must be on PATH.
`,
	}
	opts := pangenome.DefaultOpts
	dbFlag := cmd.Flags.String("midasdb", "", "MIDASDB root: a local directory or s3:// prefix (required)")
	cmd.Flags.StringVar(&opts.Species, "species", opts.Species,
		`Species to build: "all", a comma-separated list of species ids, or slices "i:n" selecting every nth species starting at i`)
	cmd.Flags.BoolVar(&opts.Force, "force", false, "Rebuild species whose pangenome already exists in the database")
	cmd.Flags.BoolVar(&opts.Debug, "debug", false, "Keep per-species scratch directories after the build")
	cmd.Flags.StringVar(&opts.ScratchDir, "scratch-dir", "", "Directory hosting per-species scratch subdirectories (default current directory)")
	cmd.Flags.IntVar(&opts.Threads, "threads", 0, "vsearch thread count; 0 means all CPUs")
	cmd.Flags.IntVar(&opts.MaxConcurrentBuilds, "max-builds", opts.MaxConcurrentBuilds, "Number of species built concurrently")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("build_pangenome takes no positional arguments, but got %v", argv)
		}
		if *dbFlag == "" {
			return fmt.Errorf("-midasdb is required")
		}
		ctx := vcontext.Background()
		layout := midasdb.Layout{Root: *dbFlag}
		toc, err := midasdb.ReadTOC(ctx, layout.TOCPath())
		if err != nil {
			return err
		}
		b := pangenome.Builder{Layout: layout, TOC: toc, Opts: opts}
		return b.Build(ctx)
	})
	return cmd
}
