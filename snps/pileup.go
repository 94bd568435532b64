// Package snps computes per-sample nucleotide variation against species
// pangenomes: sample reads are aligned to a species' centroid genes with
// bowtie2, and per-position allele depths are tallied from the resulting
// alignments.
package snps

import (
	"bufio"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/strainlab/midas2/encoding/fasta"
)

// Tallied bases, in output column order.
const (
	baseA = iota
	baseC
	baseG
	baseT
	numBases
)

var baseIndex = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	t['A'], t['a'] = baseA, baseA
	t['C'], t['c'] = baseC, baseC
	t['G'], t['g'] = baseG, baseG
	t['T'], t['t'] = baseT, baseT
	return t
}()

// Stats counts alignment dispositions while building a pileup.
type Stats struct {
	// AlignedReads is the number of alignments tallied.
	AlignedReads uint64
	// SkippedUnmapped, SkippedSecondary and SkippedLowMapq count alignments
	// excluded by FLAG or MAPQ filters.
	SkippedUnmapped  uint64
	SkippedSecondary uint64
	SkippedLowMapq   uint64
}

type refPile struct {
	seq    string
	depth  []uint32
	counts [numBases][]uint32
}

// Pileup accumulates per-position base counts over a fixed set of reference
// sequences (a species' pangenome centroids).  Thread compatible.
type Pileup struct {
	refNames []string
	refs     map[string]*refPile
}

// NewPileup creates a Pileup over the given reference sequences, typically
// the records of a centroids.ffn file.
func NewPileup(refs []fasta.Record) *Pileup {
	p := &Pileup{refs: make(map[string]*refPile, len(refs))}
	for _, r := range refs {
		pile := &refPile{seq: r.Seq, depth: make([]uint32, len(r.Seq))}
		for b := 0; b < numBases; b++ {
			pile.counts[b] = make([]uint32, len(r.Seq))
		}
		p.refs[r.ID] = pile
		p.refNames = append(p.refNames, r.ID)
	}
	return p
}

// AddSAM tallies every eligible alignment from SAM-formatted text.  Header
// lines are ignored.  Alignments flagged unmapped, secondary or
// supplementary, and those below minMapq, are counted but not tallied.
func (p *Pileup) AddSAM(r io.Reader, minMapq int) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 || line[0] == '@' {
			continue
		}
		rec, err := parseSAMRecord(line)
		if err != nil {
			return stats, err
		}
		switch {
		case rec.flag&flagUnmapped != 0:
			stats.SkippedUnmapped++
		case rec.flag&(flagSecondary|flagSupplementary) != 0:
			stats.SkippedSecondary++
		case rec.mapq < minMapq:
			stats.SkippedLowMapq++
		default:
			if err := p.add(rec); err != nil {
				return stats, err
			}
			stats.AlignedReads++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, errors.E(err, "read SAM input")
	}
	return stats, nil
}

// add walks the alignment's CIGAR and tallies aligned bases.  Only a simple
// CIGAR vocabulary is expected from the aligner: M/=/X advance both
// sequences, I/S consume query, D/N consume reference, H/P consume neither.
func (p *Pileup) add(rec samRecord) error {
	pile := p.refs[rec.ref]
	if pile == nil {
		return errors.E("alignment to unknown reference", rec.ref, "read", rec.name)
	}
	if rec.cigar == "*" || rec.pos == 0 {
		return errors.E("mapped alignment without position or CIGAR", rec.name)
	}
	refPos := rec.pos - 1
	qPos := 0
	cigar := rec.cigar
	i := 0
	for i < len(cigar) {
		n := 0
		for i < len(cigar) && cigar[i] >= '0' && cigar[i] <= '9' {
			n = n*10 + int(cigar[i]-'0')
			i++
		}
		if n == 0 || i == len(cigar) {
			return errors.E("malformed CIGAR", rec.cigar, "read", rec.name)
		}
		op := cigar[i]
		i++
		switch op {
		case 'M', '=', 'X':
			if refPos+n > len(pile.seq) || qPos+n > len(rec.seq) {
				return errors.E("alignment runs past reference or read end", rec.name, rec.ref, rec.cigar)
			}
			for k := 0; k < n; k++ {
				pile.depth[refPos+k]++
				if b := baseIndex[rec.seq[qPos+k]]; b >= 0 {
					pile.counts[b][refPos+k]++
				}
				// N and ambiguity codes contribute to depth only.
			}
			refPos += n
			qPos += n
		case 'I', 'S':
			qPos += n
			if qPos > len(rec.seq) {
				return errors.E("CIGAR runs past read end", rec.name, rec.cigar)
			}
		case 'D', 'N':
			refPos += n
			if refPos > len(pile.seq) {
				return errors.E("CIGAR runs past reference end", rec.name, rec.ref, rec.cigar)
			}
		case 'H', 'P':
		default:
			return errors.E("unsupported CIGAR op", string(op), "read", rec.name)
		}
	}
	return nil
}

// Summary aggregates a species' pileup into one snps_summary.tsv row.
type Summary struct {
	SpeciesID       string
	GenomeLength    uint64
	CoveredBases    uint64
	FractionCovered float64
	MeanCoverage    float64
	AlignedReads    uint64
}

// Summarize computes coverage statistics over all reference positions.
func (p *Pileup) Summarize(speciesID string, alignedReads uint64) Summary {
	s := Summary{SpeciesID: speciesID, AlignedReads: alignedReads}
	var totalDepth uint64
	for _, name := range p.refNames {
		pile := p.refs[name]
		s.GenomeLength += uint64(len(pile.seq))
		for _, d := range pile.depth {
			if d > 0 {
				s.CoveredBases++
				totalDepth += uint64(d)
			}
		}
	}
	if s.GenomeLength > 0 {
		s.FractionCovered = float64(s.CoveredBases) / float64(s.GenomeLength)
		s.MeanCoverage = float64(totalDepth) / float64(s.GenomeLength)
	}
	return s
}
