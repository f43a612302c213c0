package cmd

import "github.com/spf13/cobra"

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update vendored dependencies (not implemented)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info("Updating...")
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
