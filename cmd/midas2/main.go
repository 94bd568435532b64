// midas2 builds and queries MIDASDB reference databases: build_pangenome
// constructs per-species pangenomes, run_snps aligns a sample's reads against
// them and tallies per-site base counts.
package main

import (
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/strainlab/midas2/cmd/midas2/cmd"
)

func main() {
	// Handled before grail.Init: the global flag set does not know
	// -version.
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			fmt.Printf("midas2 %s\n", cmd.Release)
			return
		}
	}
	shutdown := grail.Init()
	defer shutdown()
	cmd.Run()
}
