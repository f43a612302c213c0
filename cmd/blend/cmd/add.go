package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/blend/internal/engine"
	"github.com/bianoble/blend/internal/manifest"
)

var addCmd = &cobra.Command{
	Use:   "add <repo>[#ref] <remote_path> [local_path]",
	Short: "Vendor a path from a git repository",
	Long: `Clones <repo>, checks out ref if one is given after '#', and copies
<remote_path> from the clone to [local_path] in the project. The commit that
was copied is recorded in blend.yml.

When local_path is omitted the payload is copied into the project root
itself and recorded with local_path ".". A directory's contents are merged
into the root; a single file keeps its name.

A dependency already declared at local_path is not added again, but its
files are refreshed from the fetched revision.`,
	Example: `  blend add https://github.com/org/lib.git#v1.2.0 src/util vendor/util
  blend add git@github.com:org/lib.git README.md`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()

		opts := engine.AddOptions{Repo: args[0], RemotePath: args[1]}
		if len(args) == 3 {
			opts.LocalPath = args[2]
		}

		result, err := newAddEngine(root, logger).Add(cmd.Context(), opts)
		if err != nil {
			return addError(err)
		}

		dep := result.Dependency
		if result.Added {
			info("Added %s -> %s", dep.Repo, dep.LocalPath)
		} else {
			info("%s is already declared (%s@%s), files refreshed", dep.LocalPath, result.Existing.Repo, shortHash(result.Existing.Hash))
		}
		detail("commit:      %s", dep.Hash)
		detail("remote path: %s", dep.RemotePath)
		detail("copied to:   %s", result.Destination)
		detail("manifest:    %s", result.ManifestPath)
		if up := result.Upstream; up != nil {
			detail("upstream manifest: name=%q description=%q dependencies=%d", up.Name, up.Description, len(up.Dependencies))
		}
		return nil
	},
}

// addError adds a hint for a held manifest lock.
func addError(err error) error {
	if errors.Is(err, manifest.ErrLocked) {
		return fmt.Errorf("%w (hint: another blend process may be running; remove the lock file if it is stale)", err)
	}
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	rootCmd.AddCommand(addCmd)
}
