package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/blend/internal/flags"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	verbose bool
	quiet   bool
)

// stdout receives user-facing output. It follows the root command's output
// writer so tests can capture it.
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "blend",
	Short: "Vendor files from git repositories into your project",
	Long: `blend copies a path from a git repository into your project and records
where it came from (repository, pinned commit, remote and local path) in
blend.yml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stdout = cmd.OutOrStdout()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info("blend %s", version)
		info("  commit:  %s", commit)
		info("  built:   %s", date)
	},
}

func init() {
	flags.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		errorf("%v", err)
		return err
	}
	return nil
}
