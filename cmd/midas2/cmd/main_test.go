package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/cmdline"
)

// runCommand parses and runs one midas2 invocation, returning its stdout.
func runCommand(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	env := cmdline.EnvFromOS()
	env.Stdout = &stdout
	env.Stderr = &stderr
	runner, cmdArgs, err := cmdline.Parse(newCmdRoot(), env, args)
	if err != nil {
		return stdout.String(), err
	}
	err = runner.Run(env, cmdArgs)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCommand("version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "midas2 "), out)
}

func TestHelp(t *testing.T) {
	for _, args := range [][]string{
		{"--help"},
		{"run_snps", "--help"},
		{"build_pangenome", "--help"},
	} {
		_, err := runCommand(args...)
		require.NoError(t, err, "args=%v", args)
	}
}

func TestBuildPangenomeRequiresDB(t *testing.T) {
	_, err := runCommand("build_pangenome")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-midasdb is required")
}

func TestRunSNPsRequiresFlags(t *testing.T) {
	_, err := runCommand("run_snps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}
