package snps

import "runtime"

// Opts is the collection of options for a run_snps invocation.
type Opts struct {
	// Mapq is the minimum mapping quality; alignments below it are not
	// tallied.
	Mapq int
	// Threads is the bowtie2 thread count.  0 means runtime.NumCPU().
	Threads int
	// ScratchDir hosts per-species working subdirectories (bowtie2 index,
	// raw SAM).  Empty means the current directory.
	ScratchDir string
	// Debug keeps per-species scratch directories around after the run.
	Debug bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Mapq: 20,
}

func (o Opts) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}
