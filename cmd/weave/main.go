// Command weave compiles query pipeline fragments into C-like code.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/weave/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
