package cmd

import "github.com/spf13/cobra"

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a vendored dependency (not implemented)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info("Removing: %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
