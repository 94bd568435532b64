// Package fasta contains code for reading and writing FASTA files.  Briefly,
// FASTA files consist of a number of named sequences that may be interrupted
// by newlines.  For example:
//
// >gene1
// ACGTAC
// GAGGAC
// GCG
// >gene2
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appearing after a space is ignored.
// For example, '>UHGG000001_00001 hypothetical protein' becomes
// 'UHGG000001_00001'.
//
// Unlike an in-memory or indexed representation, the Scanner in this package
// streams records one at a time, so arbitrarily large gene catalogs can be
// processed in constant memory.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// maxLineBytes bounds the length of a single line in the input.  Annotation
// tools emit wrapped sequences, but some gene catalogs store one sequence per
// line, so the bound must accommodate whole genes.
const maxLineBytes = 64 * 1024 * 1024

// Record is one named sequence from a FASTA file.
type Record struct {
	// ID is the sequence name: the characters after '>' up to the first
	// space or end of line.
	ID string
	// Seq is the sequence with line breaks removed.  It is not validated or
	// case-normalized.
	Seq string
}

// Scanner reads FASTA records sequentially from an io.Reader.  Use like
// bufio.Scanner:
//
//	sc := fasta.NewScanner(in)
//	var rec fasta.Record
//	for sc.Scan(&rec) {
//	  ...
//	}
//	if err := sc.Err(); err != nil { ... }
//
// Thread compatible.
type Scanner struct {
	sc      *bufio.Scanner
	nextID  string // header of the record to be returned by the next Scan
	started bool   // seen at least one '>' line
	err     error
	seq     strings.Builder
}

// NewScanner creates a Scanner that reads FASTA records from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineBytes)
	return &Scanner{sc: sc}
}

func parseHeader(line string) string {
	return strings.SplitN(line[1:], " ", 2)[0]
}

// Scan reads the next record into *rec.  It returns false at the end of the
// input or on error; the two cases are distinguished by Err.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	s.seq.Reset()
	for s.sc.Scan() {
		line := s.sc.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if !s.started {
				s.started = true
				s.nextID = parseHeader(line)
				continue
			}
			rec.ID = s.nextID
			rec.Seq = s.seq.String()
			s.nextID = parseHeader(line)
			return true
		}
		if !s.started {
			s.err = errors.Errorf("malformed FASTA input: sequence data before first header: %q", line)
			return false
		}
		s.seq.WriteString(line)
	}
	if s.err = s.sc.Err(); s.err != nil {
		s.err = errors.Wrap(s.err, "couldn't read FASTA data")
		return false
	}
	if !s.started {
		return false
	}
	rec.ID = s.nextID
	rec.Seq = s.seq.String()
	s.started = false
	return true
}

// Err returns the first error encountered by Scan, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Write emits one FASTA record with the sequence on a single line.
func Write(w io.Writer, id, seq string) error {
	for _, part := range []string{">", id, "\n", seq, "\n"} {
		if _, err := io.WriteString(w, part); err != nil {
			return errors.Wrap(err, "couldn't write FASTA record")
		}
	}
	return nil
}
