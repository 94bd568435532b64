package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

// Release identifies the midas2 build.  Overridden at link time on release
// builds via -ldflags "-X .../cmd.Release=...".
var Release = "dev"

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "midas2",
		Short:    "Metagenomic Intra-Species Diversity Analysis",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdBuildPangenome(),
			newCmdRunSNPs(),
			newCmdVersion(),
		},
	}
}

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}
