// Command outliner manages multi-parent outline documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/outliner/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
