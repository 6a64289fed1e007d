// Package main is the entry point for the jobplane master/worker
// binary. Both roles ship in one executable so a launcher can re-invoke
// "the currently running binary" with a `worker` subcommand rather than
// depending on a separately deployed worker artifact.
package main

import (
	"fmt"
	"os"

	"jobplane/cmd/jobplane/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
