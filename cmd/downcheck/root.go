package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"downcheck/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "downcheck",
	Short: "Downstream compatibility gate for the library under test",
	Long: "Downcheck verifies that in-progress library changes do not break downstream\nconsumers: it clones each configured project, rewrites its dependency manifest\nagainst the local checkout, builds, and runs a filtered test suite.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(*cobra.Command, []string) {
		logging.Init(parseLevel(rootFlags.logLevel), rootFlags.logFormat, nil)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
