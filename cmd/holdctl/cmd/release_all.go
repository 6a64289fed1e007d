package cmd

import (
	"github.com/spf13/cobra"
)

var releaseAllCmd = &cobra.Command{
	Use:   "release-all",
	Short: "Release every currently held service",
	RunE: func(cmd *cobra.Command, args []string) error {
		released, err := client().ReleaseAll()
		if err != nil {
			return err
		}
		if len(released) == 0 {
			cmd.Println("no services were held")
			return nil
		}
		for _, s := range released {
			cmd.Println(s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(releaseAllCmd)
}
