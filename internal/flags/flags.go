package flags

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarProjectDir = "BLEND_PROJECT_DIR"
	EnvVarLogPath    = "BLEND_LOG_PATH"
	EnvVarLogLevel   = "BLEND_LOG_LEVEL"

	// Defaults
	DefaultProjectDir = "."
	DefaultLogPath    = ""
	DefaultLogLevel   = "warn"

	// Flag names
	FlagNameProjectDir = "dir"
	FlagNameLogPath    = "log-path"
	FlagNameLogLevel   = "log-level"
)

var (
	ProjectDir string
	LogPath    string
	LogLevel   string
)

// InitFlags binds the global flags to fs, seeding unset values from the
// environment and then from the defaults.
func InitFlags(fs *pflag.FlagSet) {
	initProjectDir(fs)
	initLogger(fs)
}

func initProjectDir(fs *pflag.FlagSet) {
	if ProjectDir == "" {
		ProjectDir = envOr(EnvVarProjectDir, DefaultProjectDir)
	}
	fs.StringVar(&ProjectDir, FlagNameProjectDir, ProjectDir, "project directory holding blend.yml")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		LogPath = envOr(EnvVarLogPath, DefaultLogPath)
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "append logs to this file instead of stderr")

	if LogLevel == "" {
		LogLevel = strings.ToLower(envOr(EnvVarLogLevel, DefaultLogLevel))
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level (trace, debug, info, warn, error, off)")
}

func envOr(key, fallback string) string {
	if env := strings.TrimSpace(os.Getenv(key)); env != "" {
		return env
	}
	return fallback
}
