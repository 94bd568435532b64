// Package midasdb models the MIDASDB reference database layout: a table of
// contents enumerating genomes per species, plus the per-species gene
// annotation and pangenome files, rooted at a local directory or an s3://
// prefix.  All paths go through grailbio/base/file, so the same layout works
// against either backend.
package midasdb

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
)

const (
	// TOCName is the basename of the table of contents at the database root.
	TOCName = "genomes.tsv"

	existsRetries   = 4
	transferRetries = 3
)

var (
	existsRetryPolicy   = retry.Backoff(500*time.Millisecond, 10*time.Second, 2)
	transferRetryPolicy = retry.Backoff(time.Second, 30*time.Second, 2)
)

// Layout computes the locations of MIDASDB files under a root.
type Layout struct {
	// Root is a local directory or s3:// prefix.
	Root string
}

// TOCPath returns the location of the table of contents.
func (l Layout) TOCPath() string {
	return file.Join(l.Root, TOCName)
}

// AnnotationFile returns the location of one genome's annotation output with
// the given extension ("ffn", "fna", "faa", ...).
func (l Layout) AnnotationFile(speciesID, genomeID, ext string) string {
	return file.Join(l.Root, "gene_annotations", speciesID, genomeID, genomeID+"."+ext)
}

// PangenomeDir returns the location of one species' pangenome directory.
func (l Layout) PangenomeDir(speciesID string) string {
	return file.Join(l.Root, "pangenomes", speciesID)
}

// PangenomeFile returns the location of a named file in one species'
// pangenome directory.
func (l Layout) PangenomeFile(speciesID, name string) string {
	return file.Join(l.PangenomeDir(speciesID), name)
}

// PangenomeLog returns the location of the species build log.
func (l Layout) PangenomeLog(speciesID string) string {
	return l.PangenomeFile(speciesID, "build_pangenome.log")
}

func copyOnce(ctx context.Context, src, dst string) (err error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out.Writer(ctx), in.Reader(ctx)); err != nil {
		_ = out.Close(ctx)
		return errors.E(err, "copy", src, dst)
	}
	return out.Close(ctx)
}

// Copy transfers one file between any mix of local and s3 paths.  Occasional
// s3 transfer failures are retried with backoff.
func Copy(ctx context.Context, src, dst string) error {
	var err error
	for n := 0; ; n++ {
		err = copyOnce(ctx, src, dst)
		if err == nil || n >= transferRetries {
			return err
		}
		// A missing source will not appear on retry.
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			return err
		}
		log.Error.Printf("copy %s -> %s (attempt %d): %v", src, dst, n+1, err)
		if werr := retry.Wait(ctx, transferRetryPolicy, n); werr != nil {
			return werr
		}
	}
}

// Exists reports whether the given path exists.  Stat failures other than
// not-exist are retried with backoff; occasional s3 stat failures should not
// abort a multi-hour database build.
func Exists(ctx context.Context, path string) (bool, error) {
	var err error
	for n := 0; ; n++ {
		_, err = file.Stat(ctx, path)
		if err == nil {
			return true, nil
		}
		// The local backend surfaces raw os errors; s3 uses kinded errors.
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			return false, nil
		}
		if n >= existsRetries {
			return false, errors.E(err, "stat", path)
		}
		log.Error.Printf("stat %s (attempt %d): %v", path, n+1, err)
		if werr := retry.Wait(ctx, existsRetryPolicy, n); werr != nil {
			return false, werr
		}
	}
}
