package pangenome

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/strainlab/midas2/shell"
)

func centroidsName(percent int) string { return fmt.Sprintf("centroids.%d.ffn", percent) }
func uclustName(percent int) string    { return fmt.Sprintf("uclust.%d.txt", percent) }

// clusterGenes clusters the genes in genesFile (a path relative to dir) at
// the given identity percent with vsearch, producing centroids.<p>.ffn and
// uclust.<p>.txt in dir.  When both outputs already exist they are reused,
// which makes an interrupted species build resumable in place.  On failure
// any partial outputs are renamed aside so a rerun will not trust them.
func clusterGenes(ctx context.Context, dir string, percent int, genesFile string, threads int, toolLog io.Writer) (centroids, uclust string, err error) {
	centroids = centroidsName(percent)
	uclust = uclustName(percent)
	if fileExistsLocal(filepath.Join(dir, centroids)) && fileExistsLocal(filepath.Join(dir, uclust)) {
		log.Printf("Found vsearch results at percent identity %d from prior run.", percent)
		return centroids, uclust, nil
	}
	err = shell.Run(ctx, shell.Opts{Dir: dir, Stderr: toolLog},
		"vsearch",
		"--quiet",
		"--cluster_fast", genesFile,
		"--id", strconv.FormatFloat(float64(percent)/100.0, 'f', 2, 64),
		"--threads", strconv.Itoa(threads),
		"--centroids", centroids,
		"--uc", uclust,
	)
	if err != nil {
		// Zero-length leftovers are harmful if we rerun in place.
		renameAside(filepath.Join(dir, centroids))
		renameAside(filepath.Join(dir, uclust))
		return "", "", err
	}
	return centroids, uclust, nil
}

func fileExistsLocal(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func renameAside(path string) {
	if fileExistsLocal(path) {
		if err := os.Rename(path, path+".bogus"); err != nil {
			log.Error.Printf("rename %s aside: %v", path, err)
		}
	}
}
