package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
)

var (
	demoScheme string
	demoSize   int
	demoFit    string
	demoSeed   int64
	demoOps    int
	demoMaxReq int
)

func init() {
	cmd := newDemoCmd()
	cmd.Flags().StringVar(&demoScheme, "scheme", "boundary", "Allocator scheme (boundary, buddy, sorted)")
	cmd.Flags().IntVar(&demoSize, "size", 1<<16, "Arena size in bytes (buddy rounds up to a power of two)")
	cmd.Flags().StringVar(&demoFit, "fit", "first", "Fit mode (first, best, worst)")
	cmd.Flags().Int64Var(&demoSeed, "seed", 1, "Workload seed")
	cmd.Flags().IntVar(&demoOps, "ops", 500, "Number of workload operations")
	cmd.Flags().IntVar(&demoMaxReq, "max-request", 512, "Largest allocation request in bytes")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a reproducible workload and print the resulting block map",
		Long: `The demo command constructs one allocator, drives a seeded allocate/free
workload against it and prints the final block map with fragmentation and
operation counters.

Example:
  arenactl demo --scheme buddy --size 65536 --fit best --seed 7
  arenactl demo --scheme sorted --ops 2000 --max-request 1024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

func runDemo() error {
	fit, err := arena.ParseFitMode(demoFit)
	if err != nil {
		return err
	}

	a, err := openAllocator(demoScheme, demoSize,
		arena.WithFitMode(fit),
		arena.WithLogger(diagLogger()),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	res := runWorkload(a, demoSeed, demoOps, demoMaxReq)

	p := message.NewPrinter(language.English)

	printInfo("scheme:        %s (%s fit)\n", demoScheme, fit)
	p.Fprintf(outWriter(), "operations:    %d (%d allocs, %d frees, %d failed)\n",
		res.Ops, res.Allocs, res.Frees, res.Failed)
	p.Fprintf(outWriter(), "live blocks:   %d\n", res.LiveRefs)
	printInfo("free space:    %s\n", humanize.IBytes(uint64(res.FreeBytes)))
	printInfo("fragmentation: %.0f%% of free space in the largest hole\n", fragmentation(res.Blocks)*100)
	printInfo("block map:     [%s]\n", renderBlockMap(res.Blocks, 64))

	if verbose {
		for i, b := range res.Blocks {
			state := "avail"
			if b.Occupied {
				state = "occup"
			}
			printInfo("  block %3d: %s %s\n", i, state, humanize.IBytes(uint64(b.Size)))
		}
	}
	return nil
}
