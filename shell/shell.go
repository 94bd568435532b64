// Package shell runs the external bioinformatics tools the pipeline drives
// (vsearch, bowtie2, samtools).  Every invocation is logged with its full
// argv so a species build log doubles as a record of the exact commands run.
package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
)

// retryPolicy governs RunWithRetry.  Transient failures (network-backed
// storage, busy tool licenses) usually clear within a few seconds.
var retryPolicy = retry.Backoff(time.Second, 30*time.Second, 2)

// Opts adjusts how a command is run.
type Opts struct {
	// Dir is the working directory for the command.  Empty means the current
	// directory.
	Dir string
	// Stdout receives the command's standard output.  Nil discards it.
	Stdout io.Writer
	// Stderr receives the command's standard error.  Nil routes it to the
	// process's stderr so tool diagnostics surface in the pipeline log.
	Stderr io.Writer
}

// Run executes name with args and waits for completion.  A non-zero exit
// becomes an error that includes the argv.
func Run(ctx context.Context, opts Opts, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	log.Printf("run: %s %v", name, args)
	if err := cmd.Run(); err != nil {
		return errors.E(err, "command failed", name, args)
	}
	return nil
}

// Output executes name with args and returns its standard output.
func Output(ctx context.Context, opts Opts, name string, args ...string) ([]byte, error) {
	buf := bytes.Buffer{}
	opts.Stdout = &buf
	if err := Run(ctx, opts, name, args...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithRetry is Run with up to maxRetries additional attempts under
// exponential backoff.  Use only for commands that are safe to rerun.
func RunWithRetry(ctx context.Context, maxRetries int, opts Opts, name string, args ...string) error {
	var err error
	for n := 0; ; n++ {
		if err = Run(ctx, opts, name, args...); err == nil || n >= maxRetries {
			return err
		}
		log.Error.Printf("run: %s failed (attempt %d of %d): %v", name, n+1, maxRetries+1, err)
		if werr := retry.Wait(ctx, retryPolicy, n); werr != nil {
			return werr
		}
	}
}

// Lookup reports whether the named tool is on PATH.  Called up-front so a
// missing tool fails the run before any per-species work starts.
func Lookup(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return errors.E(err, "required tool not found on PATH", name)
		}
	}
	return nil
}
