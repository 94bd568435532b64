package fasta_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/strainlab/midas2/encoding/fasta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, in string) []fasta.Record {
	sc := fasta.NewScanner(strings.NewReader(in))
	var (
		recs []fasta.Record
		rec  fasta.Record
	)
	for sc.Scan(&rec) {
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestScan(t *testing.T) {
	recs := scanAll(t, ">seq1\nACGTA\nCGTAC\nGT\n>seq2 A viral sequence\nACGT\nACGT\n")
	assert.Equal(t, []fasta.Record{
		{ID: "seq1", Seq: "ACGTACGTACGT"},
		{ID: "seq2", Seq: "ACGTACGT"},
	}, recs)
}

func TestScanBlankLinesAndMissingTrailingNewline(t *testing.T) {
	recs := scanAll(t, "\n>g1\n\nAC\n\nGT\n>g2\nTT")
	assert.Equal(t, []fasta.Record{
		{ID: "g1", Seq: "ACGT"},
		{ID: "g2", Seq: "TT"},
	}, recs)
}

func TestScanEmptySequence(t *testing.T) {
	recs := scanAll(t, ">empty\n>g1\nAC\n")
	assert.Equal(t, []fasta.Record{
		{ID: "empty", Seq: ""},
		{ID: "g1", Seq: "AC"},
	}, recs)
}

func TestScanEmptyInput(t *testing.T) {
	assert.Empty(t, scanAll(t, ""))
}

func TestScanMalformed(t *testing.T) {
	sc := fasta.NewScanner(strings.NewReader("ACGT\n>g1\nAC\n"))
	var rec fasta.Record
	assert.False(t, sc.Scan(&rec))
	assert.Error(t, sc.Err())
	// Scan must keep failing after an error.
	assert.False(t, sc.Scan(&rec))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fasta.Write(&buf, "g1", "ACGT"))
	require.NoError(t, fasta.Write(&buf, "g2", "TT"))
	assert.Equal(t, ">g1\nACGT\n>g2\nTT\n", buf.String())

	recs := scanAll(t, buf.String())
	assert.Equal(t, []fasta.Record{
		{ID: "g1", Seq: "ACGT"},
		{ID: "g2", Seq: "TT"},
	}, recs)
}
