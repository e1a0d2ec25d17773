package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/cmd/arenascope/logger"
)

var (
	version = "0.1.0"
)

func main() {
	var (
		scheme    = flag.String("scheme", "boundary", "allocator scheme: boundary, buddy or sorted")
		size      = flag.Int("size", 1<<16, "arena size in bytes (buddy rounds up to a power of two)")
		fitName   = flag.String("fit", "first", "fit mode: first, best or worst")
		seed      = flag.Int64("seed", 1, "workload seed")
		maxReq    = flag.Int("max-request", 512, "largest workload request in bytes")
		debugMode = flag.Bool("debug", false, "log this session to ~/.arenascope")
		showVer   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("arenascope %s\n", version)
		os.Exit(0)
	}

	// Initialize the shared sink before the allocator is constructed, so
	// construction diagnostics land in the session log too.
	if err := logger.Init(logger.Options{
		Enabled: *debugMode,
		Scheme:  *scheme,
		Level:   arena.LevelTrace,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	fit, err := arena.ParseFitMode(*fitName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	logger.L.Info("starting arenascope", "scheme", *scheme, "size", *size, "fit", fit.String())

	m, err := newModel(*scheme, *size, fit, *seed, *maxReq)
	if err != nil {
		logger.L.Error("allocator construction failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		logger.L.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	if fm, ok := finalModel.(model); ok {
		fm.close()
	}
	logger.L.Info("arenascope exiting")
}
