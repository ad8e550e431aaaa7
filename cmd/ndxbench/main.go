// Package main provides the CLI entry point for ndxbench, a query latency
// benchmark for relational and spatial database backends.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	logLevel  string
	logFormat string
	logger    *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "ndxbench",
		Short: "Index and key-type query latency benchmark",
		Long: `ndxbench provisions synthetic tables on a database backend, loads them
with generated rows, and times point lookups and self-joins with and without
an index. Results are written as a JSON report with an optional CSV export.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), c.logLevel, c.logFormat)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "text",
		"Log format: text, json")

	root.AddCommand(newRunCmd(c))
	root.AddCommand(newExportCmd(c))
	root.AddCommand(newRunsCmd(c))
	root.AddCommand(newFetchCmd(c))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ndxbench version %s (commit: %s)\n", version, commit)
		},
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}
