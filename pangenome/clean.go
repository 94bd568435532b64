package pangenome

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/strainlab/midas2/encoding/fasta"
)

// CleanStats counts the outcome of cleaning one or more gene annotation
// files.
type CleanStats struct {
	// Genes is the number of genes kept.
	Genes int
	// Dropped is the number of records discarded for an empty id, the junk
	// id "|", or an empty sequence.  Such records come from improperly
	// imported genomes.
	Dropped int
}

func (s *CleanStats) merge(o CleanStats) {
	s.Genes += o.Genes
	s.Dropped += o.Dropped
}

// cleanGenes streams one genome's gene annotation FASTA (srcPath, local or
// s3, optionally compressed) and writes the usable records to dstGenes
// (FASTA, sequences upper-cased) and their lengths to dstLen as rows of
// "gene_id <tab> genome_id <tab> length".
func cleanGenes(ctx context.Context, srcPath, genomeID, dstGenes, dstLen string) (stats CleanStats, err error) {
	in, err := file.Open(ctx, srcPath)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := io.Reader(in.Reader(ctx))
	if ur := compress.NewReaderPath(r, srcPath); ur != nil {
		r = ur
	}

	outGenes, err := file.Create(ctx, dstGenes)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, outGenes, &err)
	outLen, err := file.Create(ctx, dstLen)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, outLen, &err)

	genesW := outGenes.Writer(ctx)
	lenW := tsv.NewWriter(outLen.Writer(ctx))

	sc := fasta.NewScanner(r)
	var rec fasta.Record
	for sc.Scan(&rec) {
		seq := strings.ToUpper(rec.Seq)
		if rec.ID == "" || rec.ID == "|" || len(seq) == 0 {
			stats.Dropped++
			continue
		}
		if err := fasta.Write(genesW, rec.ID, seq); err != nil {
			return stats, err
		}
		lenW.WriteString(rec.ID)
		lenW.WriteString(genomeID)
		lenW.WriteUint32(uint32(len(seq)))
		if err := lenW.EndLine(); err != nil {
			return stats, err
		}
		stats.Genes++
	}
	if err := sc.Err(); err != nil {
		return stats, errors.E(err, "clean genes", srcPath)
	}
	if err := lenW.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
