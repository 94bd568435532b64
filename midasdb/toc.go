package midasdb

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// Genome is one row of the table of contents.
type Genome struct {
	ID        string
	SpeciesID string
	// IsRepresentative marks the genome whose annotation represents the
	// species in single-genome analyses.
	IsRepresentative bool
}

// TOC is the parsed table of contents: every genome in the database, grouped
// by species.
type TOC struct {
	species         map[string]map[string]Genome
	representatives map[string]string
	speciesIDs      []string
}

// Table of contents columns.  Extra columns are ignored.
type tocRow struct {
	Genome           string `tsv:"genome"`
	Species          string `tsv:"species"`
	Representative   string `tsv:"representative"`
	IsRepresentative string `tsv:"genome_is_representative"`
}

// ReadTOC reads and validates a genomes.tsv table of contents.  The path may
// be local or s3, optionally compressed (by extension).
func ReadTOC(ctx context.Context, path string) (toc *TOC, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := io.Reader(in.Reader(ctx))
	if ur := compress.NewReaderPath(r, path); ur != nil {
		r = ur
	}

	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true

	toc = &TOC{
		species:         map[string]map[string]Genome{},
		representatives: map[string]string{},
	}
	seen := map[string]string{}   // genome id -> species id
	repCol := map[string]string{} // species id -> representative column value
	nRows := 0
	for {
		var row tocRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "parse table of contents", path)
		}
		nRows++
		if _, err := strconv.Atoi(row.Species); err != nil {
			return nil, errors.E("species id is not an integer", row.Species, path)
		}
		if prev, ok := seen[row.Genome]; ok {
			return nil, errors.E("genome listed twice in table of contents", row.Genome, "species", prev, "and", row.Species)
		}
		seen[row.Genome] = row.Species
		g := Genome{
			ID:               row.Genome,
			SpeciesID:        row.Species,
			IsRepresentative: row.IsRepresentative == "1",
		}
		if toc.species[row.Species] == nil {
			toc.species[row.Species] = map[string]Genome{}
			toc.speciesIDs = append(toc.speciesIDs, row.Species)
		}
		toc.species[row.Species][g.ID] = g
		if g.IsRepresentative {
			toc.representatives[row.Species] = g.ID
		}
		if row.Representative != "" {
			if prev, ok := repCol[row.Species]; ok && prev != row.Representative {
				return nil, errors.E("inconsistent representative for species", row.Species, prev, row.Representative)
			}
			repCol[row.Species] = row.Representative
		}
	}
	for speciesID, rep := range toc.representatives {
		if want, ok := repCol[speciesID]; ok && want != rep {
			return nil, errors.E("representative column disagrees with genome_is_representative for species", speciesID, want, rep)
		}
	}
	sort.Slice(toc.speciesIDs, func(i, j int) bool {
		a, _ := strconv.Atoi(toc.speciesIDs[i])
		b, _ := strconv.Atoi(toc.speciesIDs[j])
		return a < b
	})
	log.Printf("Read table of contents %s: %d genomes in %d species", path, nRows, len(toc.speciesIDs))
	return toc, nil
}

// SpeciesIDs returns all species ids in numeric order.
func (t *TOC) SpeciesIDs() []string {
	return t.speciesIDs
}

// HasSpecies reports whether the species is in the database.
func (t *TOC) HasSpecies(speciesID string) bool {
	_, ok := t.species[speciesID]
	return ok
}

// Genomes returns the genomes of the given species, or nil if the species is
// not in the database.
func (t *TOC) Genomes(speciesID string) map[string]Genome {
	return t.species[speciesID]
}

// GenomeIDs returns the sorted genome ids of the given species.
func (t *TOC) GenomeIDs(speciesID string) []string {
	ids := make([]string, 0, len(t.species[speciesID]))
	for id := range t.species[speciesID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Representative returns the representative genome id of the species, if the
// table of contents designates one.
func (t *TOC) Representative(speciesID string) (string, bool) {
	rep, ok := t.representatives[speciesID]
	return rep, ok
}
