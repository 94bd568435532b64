package snps

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// WritePileup writes the covered sites of a species pileup as
// snps_pileup.tsv: one row per reference position with nonzero depth, in
// reference order.  Positions are 1-based in the text output.
func WritePileup(ctx context.Context, path string, p *Pileup) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	for _, col := range []string{"ref_id", "ref_pos", "ref_allele", "depth", "count_a", "count_c", "count_g", "count_t"} {
		w.WriteString(col)
	}
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, name := range p.refNames {
		pile := p.refs[name]
		for pos, depth := range pile.depth {
			if depth == 0 {
				continue
			}
			w.WriteString(name)
			w.WriteUint32(uint32(pos + 1))
			w.WriteByte(pile.seq[pos])
			w.WriteUint32(depth)
			for b := 0; b < numBases; b++ {
				w.WriteUint32(pile.counts[b][pos])
			}
			if err := w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// WriteSummary writes the per-species coverage summaries as
// snps_summary.tsv.
func WriteSummary(ctx context.Context, path string, summaries []Summary) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	for _, col := range []string{"species_id", "genome_length", "covered_bases", "fraction_covered", "mean_coverage", "aligned_reads"} {
		w.WriteString(col)
	}
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, s := range summaries {
		w.WriteString(s.SpeciesID)
		w.WriteInt64(int64(s.GenomeLength))
		w.WriteInt64(int64(s.CoveredBases))
		w.WriteFloat64(s.FractionCovered, 'f', 6)
		w.WriteFloat64(s.MeanCoverage, 'f', 6)
		w.WriteInt64(int64(s.AlignedReads))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
