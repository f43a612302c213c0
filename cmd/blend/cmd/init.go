package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/sandbox"
)

var initForce bool

// initTemplate is the default blend.yml scaffold.
const initTemplate = `# blend manifest
# Entries under dependencies are written by 'blend add'.
name: my-project
description: ""

# Lifecycle hook commands. Recorded only, never run.
# hooks:
#   preinstall: ""
#   postinstall: ""
#   preuninstall: ""
#   postuninstall: ""

dependencies: []
# - repo: https://github.com/your-org/shared.git
#   hash: <commit recorded by blend add>
#   remote_path: src/util
#   local_path: vendor/util
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter blend.yml",
	Long: `Creates a blend.yml file in the project directory with a commented
template.

Use --force to overwrite an existing manifest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		outPath := filepath.Join(root, manifest.FileName)

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := sandbox.SafeWrite(root, manifest.FileName, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Set the project name and description")
		info("  2. Run 'blend add <repo>[#ref] <remote_path> [local_path]' to vendor a dependency")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing blend.yml")
	rootCmd.AddCommand(initCmd)
}
