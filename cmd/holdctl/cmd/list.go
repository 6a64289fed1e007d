package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently held service ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := client().List()
		if err != nil {
			return err
		}
		if len(services) == 0 {
			cmd.Println("no services are currently held")
			return nil
		}
		for _, s := range services {
			cmd.Println(s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
