package pangenome

import "runtime"

// ClusteringPercents are the sequence identity thresholds, in percent, at
// which genes are clustered.  The first (highest) percent clusters the full
// gene set; the rest recluster the top-level centroids.  Must be descending.
var ClusteringPercents = []int{99, 95, 90, 85, 80, 75}

// Opts is the collection of options for a pangenome build.
type Opts struct {
	// Species selects which species to build: "all", a comma-separated list
	// of species ids, or a slice "i:n" meaning species ids congruent to i
	// modulo n.
	Species string
	// Force rebuilds a species even when its destination gene_info.txt
	// already exists.
	Force bool
	// Debug keeps per-species scratch directories around after the build.
	Debug bool
	// ScratchDir hosts per-species working subdirectories.  Empty means the
	// current directory.
	ScratchDir string
	// Threads is the vsearch thread count.  0 means runtime.NumCPU().
	Threads int
	// MaxConcurrentBuilds bounds simultaneous species builds.  Cleaning and
	// clustering for one species already fan out internally, so this stays
	// small.
	MaxConcurrentBuilds int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Species:             "all",
	MaxConcurrentBuilds: 3,
}

func (o Opts) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}
