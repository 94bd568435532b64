package snps

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// SAM FLAG bits relevant to pileup filtering.
const (
	flagUnmapped      = 0x4
	flagSecondary     = 0x100
	flagSupplementary = 0x800
)

// samRecord holds the fields of one SAM alignment line that the pileup
// consumes.  The remaining columns (mate info, quality string, aux tags) are
// not retained.
type samRecord struct {
	name  string
	flag  int
	ref   string
	pos   int // 1-based leftmost mapping position
	mapq  int
	cigar string
	seq   string
}

// parseSAMRecord parses one alignment line (not a header line) of the SAM
// text emitted by the aligner.
func parseSAMRecord(line string) (samRecord, error) {
	f := strings.Split(line, "\t")
	if len(f) < 11 {
		return samRecord{}, errors.E("truncated SAM record", line)
	}
	flag, err := strconv.Atoi(f[1])
	if err != nil {
		return samRecord{}, errors.E(err, "bad FLAG in SAM record", line)
	}
	pos, err := strconv.Atoi(f[3])
	if err != nil || pos < 0 {
		return samRecord{}, errors.E("bad POS in SAM record", line)
	}
	mapq, err := strconv.Atoi(f[4])
	if err != nil {
		return samRecord{}, errors.E("bad MAPQ in SAM record", line)
	}
	return samRecord{
		name:  f[0],
		flag:  flag,
		ref:   f[2],
		pos:   pos,
		mapq:  mapq,
		cigar: f[5],
		seq:   f[9],
	}, nil
}
