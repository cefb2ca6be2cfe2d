// Package cmd provides the CLI commands for devisible.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. A fresh tree per call keeps tests
// independent of each other's flag state.
func NewRootCmd(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:   "devisible",
		Short: "DEVisible dependency dashboard",
		Long: `devisible serves the DEVisible dashboard API: it signs users in against
the DEVisible backend, loads per-repository build and dependency data, and
reports repositories whose dependencies drift from the preferred versions.`,
		SilenceUsage: true,
	}
	root.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	root.SetVersionTemplate("devisible {{.Version}}\n")

	root.PersistentFlags().StringP("config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newOutOfSpecCmd())

	return root
}

// Execute runs the root command.
func Execute(version, commit string) error {
	return NewRootCmd(version, commit).Execute()
}

// newLogger builds the process logger from the configured format and level.
func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
