// Package cmd implements holdctl's cobra command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "holdctl",
	Short: "holdctl inspects and releases held jobplane services",
	Long: `holdctl is the operator's command-line tool for the hold
coordinator: list the service ids currently paused for inspection, and
release one or all of them to let the master retry.

Configuration:
  JOBPLANE_HOLD_URL     coordinator base URL (default: http://localhost:11132)
  JOBPLANE_HOLD_SECRET  bearer token, if the coordinator requires one`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	viper.SetEnvPrefix("JOBPLANE")
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("url", "http://localhost:11132", "hold coordinator base URL")
	viper.BindPFlag("hold_url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().String("secret", "", "bearer token for the hold coordinator")
	viper.BindPFlag("hold_secret", rootCmd.PersistentFlags().Lookup("secret"))
}

func client() *HoldClient {
	url := viper.GetString("hold_url")
	secret := viper.GetString("hold_secret")
	return NewHoldClient(url, secret)
}
