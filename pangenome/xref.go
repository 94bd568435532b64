package pangenome

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// xrefClusters combines the per-percent uclust outputs into a single
// gene_info.txt table mapping every gene to its centroid at every clustering
// percent.
//
// Only the top-percent clustering covers all genes directly; the lower
// percents recluster the top-percent centroids.  A gene's lower-percent
// centroids are therefore inferred transitively through its top-percent
// centroid: the clusters containing that centroid also contain the gene.
//
// percents must be descending (ClusteringPercents order); uclustFiles maps
// each percent to its uclust path.  Returns the number of genes written.
func xrefClusters(ctx context.Context, percents []int, uclustFiles map[int]string, dstPath string) (int, error) {
	// centroid[gene][percent] is the centroid of the percent-identity
	// cluster containing gene.
	centroid := map[string]map[int]string{}
	for _, percent := range percents {
		p := percent
		err := parseUclust(ctx, uclustFiles[p], func(typ byte, geneID, centroidID string) error {
			m := centroid[geneID]
			if m == nil {
				m = map[int]string{}
				centroid[geneID] = m
			}
			m[p] = centroidID
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	// A clash of contig names across genomes shows up here as a
	// non-idempotent top-percent centroid relation.
	maxPercent := percents[0]
	for gene, m := range centroid {
		cg, ok := m[maxPercent]
		if !ok {
			return 0, errors.E("gene missing from top-percent clustering", gene)
		}
		ccg := centroid[cg][maxPercent]
		if cg != ccg {
			return 0, errors.E(fmt.Sprintf(
				"the %d-centroid relation should be idempotent for gene %s, however %s != %s; were genomes imported with clashing contig names?",
				maxPercent, gene, cg, ccg))
		}
	}

	// Fill in lower-percent assignments through the top-percent centroid.
	for _, m := range centroid {
		recluster := centroid[m[maxPercent]]
		for _, p := range percents {
			m[p] = recluster[p]
		}
	}

	genes := make([]string, 0, len(centroid))
	for gene := range centroid {
		genes = append(genes, gene)
	}
	sort.Strings(genes)

	return len(genes), writeGeneInfo(ctx, dstPath, percents, genes, centroid)
}

func writeGeneInfo(ctx context.Context, dstPath string, percents []int, genes []string, centroid map[string]map[int]string) (err error) {
	out, err := file.Create(ctx, dstPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("gene_id")
	for _, p := range percents {
		w.WriteString(fmt.Sprintf("centroid_%d", p))
	}
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, gene := range genes {
		w.WriteString(gene)
		for _, p := range percents {
			w.WriteString(centroid[gene][p])
		}
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
