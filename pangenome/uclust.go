package pangenome

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// A vsearch --uc file has no header line, so the schema is hardcoded here.
// Only the record type, gene id, and centroid id columns are consumed.
type uclustRow struct {
	Type      string
	ClusterID string
	Size      string
	Pid       string
	Strand    string
	Skip1     string
	Skip2     string
	Skip3     string
	GeneID    string
	Centroid  string
}

// parseUclust streams cluster assignment records from a vsearch --uc file.
// Record types: 'S' means the gene is the centroid of its own cluster, 'H'
// means the gene hit the listed centroid.  All other record types are
// summaries and are not reported.
func parseUclust(ctx context.Context, path string, fn func(typ byte, geneID, centroidID string) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	tr := tsv.NewReader(in.Reader(ctx))
	for {
		var row uclustRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.E(err, "parse uclust file", path)
		}
		if len(row.Type) != 1 {
			return errors.E("malformed uclust record type", row.Type, path)
		}
		switch row.Type[0] {
		case 'S':
			if err := fn('S', row.GeneID, row.GeneID); err != nil {
				return err
			}
		case 'H':
			if err := fn('H', row.GeneID, row.Centroid); err != nil {
				return err
			}
		}
	}
}
