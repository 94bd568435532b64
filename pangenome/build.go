package pangenome

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/limiter"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/shell"
)

// GeneInfoName is the final pangenome output.  It is uploaded strictly last:
// its presence at the destination marks a completed species build.
const GeneInfoName = "gene_info.txt"

// SelectSpecies resolves a species selection expression against the table of
// contents.  The expression is "all", a comma-separated list of species ids,
// or slices "i:n" selecting species ids congruent to i modulo n.  The result
// is sorted numerically.
func SelectSpecies(toc *midasdb.TOC, arg string) ([]string, error) {
	selected := map[string]bool{}
	if strings.EqualFold(arg, "all") {
		for _, id := range toc.SpeciesIDs() {
			selected[id] = true
		}
	} else {
		for _, s := range strings.Split(arg, ",") {
			if !strings.Contains(s, ":") {
				if _, err := strconv.Atoi(s); err != nil {
					return nil, errors.E("species id is not an integer", s)
				}
				if !toc.HasSpecies(s) {
					return nil, errors.E("species is not in the database", s)
				}
				selected[s] = true
				continue
			}
			parts := strings.SplitN(s, ":", 2)
			i, err1 := strconv.Atoi(parts[0])
			n, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil || i < 0 || i >= n {
				return nil, errors.E("species slice makes no sense", s)
			}
			for _, id := range toc.SpeciesIDs() {
				v, _ := strconv.Atoi(id)
				if v%n == i {
					selected[id] = true
				}
			}
		}
	}
	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids, nil
}

// Builder runs pangenome construction for selected species against a
// MIDASDB.
type Builder struct {
	Layout midasdb.Layout
	TOC    *midasdb.TOC
	Opts   Opts
}

// Build constructs pangenomes for the species selected by Opts.Species.
// Species whose destination gene_info.txt already exists are skipped unless
// Opts.Force.  Builds run with bounded concurrency; the first error cancels
// remaining work.
func (b *Builder) Build(ctx context.Context) error {
	if err := shell.Lookup("vsearch"); err != nil {
		return err
	}
	speciesIDs, err := SelectSpecies(b.TOC, b.Opts.Species)
	if err != nil {
		return err
	}
	if len(speciesIDs) == 0 {
		log.Printf("No species selected, nothing to do.")
		return nil
	}
	maxBuilds := b.Opts.MaxConcurrentBuilds
	if maxBuilds <= 0 {
		maxBuilds = DefaultOpts.MaxConcurrentBuilds
	}
	lim := limiter.New()
	lim.Release(maxBuilds)
	return traverse.Each(len(speciesIDs), func(i int) error {
		return b.buildSpecies(ctx, lim, speciesIDs[i])
	})
}

func (b *Builder) buildSpecies(ctx context.Context, lim *limiter.Limiter, speciesID string) error {
	genomes := b.TOC.GenomeIDs(speciesID)
	if len(genomes) == 0 {
		return errors.E("species has no genomes in the table of contents", speciesID)
	}
	dest := b.Layout.PangenomeFile(speciesID, GeneInfoName)
	exists, err := midasdb.Exists(ctx, dest)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Building pangenome for species %s with %d total genomes.", speciesID, len(genomes))
	if exists {
		if !b.Opts.Force {
			log.Printf("Destination %s for species %s pangenome already exists.  Specify -force to overwrite.", dest, speciesID)
			return nil
		}
		msg = strings.Replace(msg, "Building", "Rebuilding", 1)
	}

	if err := lim.Acquire(ctx, 1); err != nil {
		return err
	}
	defer lim.Release(1)
	log.Printf("%s", msg)

	dir := filepath.Join(b.Opts.ScratchDir, speciesID)
	if !b.Opts.Debug {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	logPath := filepath.Join(dir, "build_pangenome.log")
	slog, err := os.Create(logPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(slog, msg)
	buildErr := b.buildSpeciesInDir(ctx, speciesID, dir, slog)
	if buildErr != nil {
		fmt.Fprintf(slog, "Build failed: %v\n", buildErr)
	}
	if err := slog.Close(); err != nil && buildErr == nil {
		buildErr = err
	}
	// Upload the log and clean up regardless of the build outcome, without
	// masking a build error with a less informative one.
	if err := midasdb.Copy(ctx, logPath, b.Layout.PangenomeLog(speciesID)); err != nil {
		log.Error.Printf("upload build log for species %s: %v", speciesID, err)
	}
	if !b.Opts.Debug {
		if err := os.RemoveAll(dir); err != nil {
			log.Error.Printf("remove scratch dir %s: %v", dir, err)
		}
	}
	return buildErr
}

func (b *Builder) buildSpeciesInDir(ctx context.Context, speciesID, dir string, slog io.Writer) error {
	genomes := b.TOC.GenomeIDs(speciesID)

	// Clean every genome's gene annotations.  CPU-bound FASTA parsing and
	// network reads overlap across genomes.
	stats := make([]CleanStats, len(genomes))
	err := traverse.Each(len(genomes), func(i int) error {
		genomeID := genomes[i]
		src := b.Layout.AnnotationFile(speciesID, genomeID, "ffn")
		var err error
		stats[i], err = cleanGenes(ctx, src, genomeID,
			filepath.Join(dir, genomeID+".genes.ffn"),
			filepath.Join(dir, genomeID+".genes.len"))
		return err
	})
	if err != nil {
		return err
	}
	total := CleanStats{}
	for _, s := range stats {
		total.merge(s)
	}
	fmt.Fprintf(slog, "Cleaned %d genes from %d genomes (%d records dropped).\n", total.Genes, len(genomes), total.Dropped)

	if err := concatFiles(dir, genomes, ".genes.ffn", filepath.Join(dir, "genes.ffn")); err != nil {
		return err
	}
	if err := concatFiles(dir, genomes, ".genes.len", filepath.Join(dir, "genes.len")); err != nil {
		return err
	}

	// The initial clustering to the top percent takes longest; the
	// reclusterings of its centroids are quick and run in parallel.
	maxPercent, lowerPercents := ClusteringPercents[0], ClusteringPercents[1:]
	centroidsMax, uclustMax, err := clusterGenes(ctx, dir, maxPercent, "genes.ffn", b.Opts.threads(), slog)
	if err != nil {
		return err
	}
	uclustFiles := make([]string, len(ClusteringPercents))
	uclustFiles[0] = uclustMax
	err = traverse.Each(len(lowerPercents), func(i int) error {
		_, uclust, err := clusterGenes(ctx, dir, lowerPercents[i], centroidsMax, b.Opts.threads(), slog)
		uclustFiles[i+1] = uclust
		return err
	})
	if err != nil {
		return err
	}
	byPercent := map[int]string{}
	for i, p := range ClusteringPercents {
		byPercent[p] = filepath.Join(dir, uclustFiles[i])
	}

	nGenes, err := xrefClusters(ctx, ClusteringPercents, byPercent, filepath.Join(dir, GeneInfoName))
	if err != nil {
		return err
	}
	fmt.Fprintf(slog, "Cross-referenced %d genes at percents %v.\n", nGenes, ClusteringPercents)

	return b.uploadSpecies(ctx, speciesID, dir, centroidsMax)
}

// concatFiles concatenates dir/<genome><suffix> for every genome into dst,
// in genome order.
func concatFiles(dir string, genomes []string, suffix, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()
	for _, genomeID := range genomes {
		in, err := os.Open(filepath.Join(dir, genomeID+suffix))
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// uploadSpecies publishes the build outputs.  The destination directory is
// cleared first so a rebuild never leaves a mix of old and new files, and
// gene_info.txt goes last so its presence implies everything else made it.
func (b *Builder) uploadSpecies(ctx context.Context, speciesID, dir, centroidsMax string) error {
	destDir := b.Layout.PangenomeDir(speciesID)
	lister := file.List(ctx, destDir, true)
	var stale []string
	for lister.Scan() {
		stale = append(stale, lister.Path())
	}
	// A first-ever build has no destination directory yet.
	if err := lister.Err(); err != nil && !errors.Is(errors.NotExist, err) && !os.IsNotExist(err) {
		return err
	}
	for _, path := range stale {
		if err := file.Remove(ctx, path); err != nil {
			return err
		}
	}

	type task struct{ src, dst string }
	tasks := []task{
		{"genes.ffn", b.Layout.PangenomeFile(speciesID, "genes.ffn")},
		{"genes.len", b.Layout.PangenomeFile(speciesID, "genes.len")},
		{centroidsMax, b.Layout.PangenomeFile(speciesID, "centroids.ffn")},
	}
	for _, p := range ClusteringPercents {
		tasks = append(tasks,
			task{centroidsName(p), b.Layout.PangenomeFile(speciesID, "temp/"+centroidsName(p))},
			task{uclustName(p), b.Layout.PangenomeFile(speciesID, "temp/"+uclustName(p))})
	}
	err := traverse.Each(len(tasks), func(i int) error {
		return midasdb.Copy(ctx, filepath.Join(dir, tasks[i].src), tasks[i].dst)
	})
	if err != nil {
		return err
	}
	return midasdb.Copy(ctx, filepath.Join(dir, GeneInfoName), b.Layout.PangenomeFile(speciesID, GeneInfoName))
}

