package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/bianoble/blend/internal/engine"
	"github.com/bianoble/blend/internal/flags"
	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/source"
)

// projectRoot returns the absolute project directory.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(flags.ProjectDir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory: %w", err)
	}
	return abs, nil
}

// newLogger builds the diagnostic logger from the log flags. --verbose
// raises the level to debug. The returned func closes the log file, if any.
func newLogger() (hclog.Logger, func() error, error) {
	var output io.Writer = rootCmd.ErrOrStderr()
	closeLog := func() error { return nil }
	if flags.LogPath != "" {
		f, err := os.OpenFile(flags.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file (%s): %w", flags.LogPath, err)
		}
		output = f
		closeLog = f.Close
	}

	level := hclog.LevelFromString(flags.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	if verbose && level > hclog.Debug {
		level = hclog.Debug
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "blend",
		Level:  level,
		Output: output,
	}), closeLog, nil
}

// newAddEngine wires the git resolver and manifest store for root.
func newAddEngine(root string, logger hclog.Logger) *engine.AddEngine {
	return &engine.AddEngine{
		Resolver:    &source.GitResolver{Logger: logger.Named("source")},
		Store:       manifest.NewStore(logger.Named("manifest")),
		ProjectRoot: root,
		Logger:      logger.Named("engine"),
	}
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Fprintf(stdout, "  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), "error: "+format+"\n", args...)
}
