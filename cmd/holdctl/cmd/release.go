package cmd

import (
	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release [service]",
	Short: "Release one held service, letting the master retry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service := args[0]
		released, err := client().Release(service)
		if err != nil {
			return err
		}
		if released == "" {
			cmd.Printf("%s was not held\n", service)
			return nil
		}
		cmd.Printf("released %s\n", released)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(releaseCmd)
}
