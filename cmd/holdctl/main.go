// Package main is the entry point for holdctl, the hold coordinator's
// operator CLI.
package main

import (
	"fmt"
	"os"

	"jobplane/cmd/holdctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
