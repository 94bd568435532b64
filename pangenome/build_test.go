package pangenome_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/strainlab/midas2/midasdb"
	"github.com/strainlab/midas2/pangenome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVsearch behaves like vsearch --cluster_fast for plumbing tests: every
// gene becomes the centroid of its own cluster.
const fakeVsearch = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --cluster_fast) genes="$2"; shift 2;;
    --centroids) centroids="$2"; shift 2;;
    --uc) uc="$2"; shift 2;;
    --id|--threads) shift 2;;
    *) shift;;
  esac
done
cp "$genes" "$centroids"
grep '^>' "$genes" | sed 's/^>//' | awk '{print "S\t0\t100\t*\t*\t*\t*\t*\t"$1"\t*"}' > "$uc"
`

func installFakeVsearch(t *testing.T) {
	bin := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(bin, "vsearch"), []byte(fakeVsearch), 0755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func writeFile(t *testing.T, path, body string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
}

// setupDB creates a local MIDASDB root with one two-genome species and one
// single-genome species.
func setupDB(t *testing.T) (midasdb.Layout, *midasdb.TOC) {
	root, cleanup := testutil.TempDir(t, "", "midasdb")
	t.Cleanup(func() { testutil.NoCleanupOnError(t, cleanup, root) })
	layout := midasdb.Layout{Root: root}
	writeFile(t, layout.TOCPath(),
		"genome\tspecies\trepresentative\tgenome_is_representative\n"+
			"genome1\t100001\tgenome1\t1\n"+
			"genome2\t100001\tgenome1\t0\n"+
			"genome3\t100002\tgenome3\t1\n")
	writeFile(t, layout.AnnotationFile("100001", "genome1", "ffn"), ">g1\nACGT\n>g2\nGGCC\n")
	writeFile(t, layout.AnnotationFile("100001", "genome2", "ffn"), ">g3\nTTAA\n")
	writeFile(t, layout.AnnotationFile("100002", "genome3", "ffn"), ">g4\nACAC\n")
	toc, err := midasdb.ReadTOC(context.Background(), layout.TOCPath())
	require.NoError(t, err)
	return layout, toc
}

func newBuilder(layout midasdb.Layout, toc *midasdb.TOC, scratch string) *pangenome.Builder {
	opts := pangenome.DefaultOpts
	opts.ScratchDir = scratch
	opts.Threads = 1
	return &pangenome.Builder{Layout: layout, TOC: toc, Opts: opts}
}

func TestBuild(t *testing.T) {
	installFakeVsearch(t)
	layout, toc := setupDB(t)
	b := newBuilder(layout, toc, t.TempDir())
	require.NoError(t, b.Build(context.Background()))

	genes, err := ioutil.ReadFile(layout.PangenomeFile("100001", "genes.ffn"))
	require.NoError(t, err)
	assert.Equal(t, ">g1\nACGT\n>g2\nGGCC\n>g3\nTTAA\n", string(genes))

	lens, err := ioutil.ReadFile(layout.PangenomeFile("100001", "genes.len"))
	require.NoError(t, err)
	assert.Equal(t, "g1\tgenome1\t4\ng2\tgenome1\t4\ng3\tgenome2\t4\n", string(lens))

	centroids, err := ioutil.ReadFile(layout.PangenomeFile("100001", "centroids.ffn"))
	require.NoError(t, err)
	assert.Equal(t, string(genes), string(centroids))

	info, err := ioutil.ReadFile(layout.PangenomeFile("100001", pangenome.GeneInfoName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(info), "\n"), "\n")
	assert.Equal(t, "gene_id\tcentroid_99\tcentroid_95\tcentroid_90\tcentroid_85\tcentroid_80\tcentroid_75", lines[0])
	assert.Equal(t, []string{
		"g1\tg1\tg1\tg1\tg1\tg1\tg1",
		"g2\tg2\tg2\tg2\tg2\tg2\tg2",
		"g3\tg3\tg3\tg3\tg3\tg3\tg3",
	}, lines[1:])

	// Intermediate cluster files are preserved under temp/.
	for _, p := range pangenome.ClusteringPercents {
		_, err := os.Stat(layout.PangenomeFile("100001", "temp/uclust."+strconv.Itoa(p)+".txt"))
		assert.NoError(t, err)
	}

	// Both species built; per-species build logs uploaded.
	_, err = os.Stat(layout.PangenomeFile("100002", pangenome.GeneInfoName))
	assert.NoError(t, err)
	buildLog, err := ioutil.ReadFile(layout.PangenomeLog("100001"))
	require.NoError(t, err)
	assert.Contains(t, string(buildLog), "Building pangenome for species 100001 with 2 total genomes.")
}

func TestBuildSkipsExisting(t *testing.T) {
	installFakeVsearch(t)
	layout, toc := setupDB(t)
	writeFile(t, layout.PangenomeFile("100001", pangenome.GeneInfoName), "stale\n")

	b := newBuilder(layout, toc, t.TempDir())
	b.Opts.Species = "100001"
	require.NoError(t, b.Build(context.Background()))

	// Untouched: the destination marker suppressed the build.
	info, err := ioutil.ReadFile(layout.PangenomeFile("100001", pangenome.GeneInfoName))
	require.NoError(t, err)
	assert.Equal(t, "stale\n", string(info))
	_, err = os.Stat(layout.PangenomeFile("100001", "genes.ffn"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildForceRebuilds(t *testing.T) {
	installFakeVsearch(t)
	layout, toc := setupDB(t)
	writeFile(t, layout.PangenomeFile("100001", pangenome.GeneInfoName), "stale\n")
	writeFile(t, layout.PangenomeFile("100001", "leftover.txt"), "junk\n")

	b := newBuilder(layout, toc, t.TempDir())
	b.Opts.Species = "100001"
	b.Opts.Force = true
	require.NoError(t, b.Build(context.Background()))

	info, err := ioutil.ReadFile(layout.PangenomeFile("100001", pangenome.GeneInfoName))
	require.NoError(t, err)
	assert.NotEqual(t, "stale\n", string(info))
	// The destination was cleared before upload.
	_, err = os.Stat(layout.PangenomeFile("100001", "leftover.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildDebugKeepsScratch(t *testing.T) {
	installFakeVsearch(t)
	layout, toc := setupDB(t)
	scratch := t.TempDir()
	b := newBuilder(layout, toc, scratch)
	b.Opts.Species = "100002"
	b.Opts.Debug = true
	require.NoError(t, b.Build(context.Background()))
	_, err := os.Stat(filepath.Join(scratch, "100002", "genes.ffn"))
	assert.NoError(t, err)
}

func TestSelectSpecies(t *testing.T) {
	_, toc := setupDB(t)
	for _, tt := range []struct {
		arg  string
		want []string
	}{
		{"all", []string{"100001", "100002"}},
		{"ALL", []string{"100001", "100002"}},
		{"100002", []string{"100002"}},
		{"100002,100001", []string{"100001", "100002"}},
		{"1:2", []string{"100001"}}, // 100001 = 1 mod 2
		{"0:2", []string{"100002"}},
		{"0:2,1:2", []string{"100001", "100002"}},
	} {
		got, err := pangenome.SelectSpecies(toc, tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

func TestSelectSpeciesErrors(t *testing.T) {
	_, toc := setupDB(t)
	for _, arg := range []string{
		"notaspecies", // not an integer
		"999999",      // integer but unknown
		"2:1",         // index >= modulus
		"-1:2",
		"1:x",
	} {
		_, err := pangenome.SelectSpecies(toc, arg)
		assert.Error(t, err, arg)
	}
}
