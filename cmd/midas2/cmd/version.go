package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"
)

func newCmdVersion() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "version",
		Short: "Print the midas2 release",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		fmt.Fprintf(env.Stdout, "midas2 %s\n", Release)
		return nil
	})
	return cmd
}
