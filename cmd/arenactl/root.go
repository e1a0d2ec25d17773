package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "arenactl",
	Short: "Exercise and inspect arenakit allocators",
	Long: `arenactl drives the arenakit byte allocators - boundary-tag, buddy and
sorted-list - with reproducible workloads and prints their block maps,
fragmentation figures and operation counters.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log allocator diagnostics to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// diagLogger returns the allocator diagnostic sink for the current flags.
func diagLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// printInfo prints an info message if not in quiet mode.
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func outWriter() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}
