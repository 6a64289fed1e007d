// Package cmd implements the jobplane binary's cobra command tree:
// a master subcommand running the cluster computation and a worker
// subcommand invoked by launchers to register with it.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "jobplane",
	Short: "jobplane runs the master/worker remote-execution runtime",
	Long: `jobplane dispatches closures from a master process to short-lived
worker processes launched through a pluggable backend (a local
subprocess, a Docker container, or a Kubernetes Job), and holds any
failed computation open for operator inspection instead of retrying it
blind.

  jobplane master             run the master and its cluster computation
  jobplane worker --master A --service S   register a worker (usually
                               invoked by a launcher, not typed by hand)`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		viper.SetEnvPrefix("JOBPLANE")
		viper.AutomaticEnv()
	})
}
