// Command inkwell creates, inspects, renders and converts inkwell documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/inkwell/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inkwell:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
