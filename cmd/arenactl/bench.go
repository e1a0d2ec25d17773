package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
)

var (
	benchSize   int
	benchFit    string
	benchSeed   int64
	benchOps    int
	benchMaxReq int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchSize, "size", 1<<16, "Arena size in bytes")
	cmd.Flags().StringVar(&benchFit, "fit", "first", "Fit mode (first, best, worst)")
	cmd.Flags().Int64Var(&benchSeed, "seed", 1, "Workload seed")
	cmd.Flags().IntVar(&benchOps, "ops", 2000, "Number of workload operations")
	cmd.Flags().IntVar(&benchMaxReq, "max-request", 512, "Largest allocation request in bytes")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run the same workload across all three schemes and compare",
		Long: `The bench command drives an identical seeded workload through the
boundary-tag, buddy and sorted-list allocators and compares failure counts,
free space and fragmentation.

Example:
  arenactl bench --size 65536 --ops 5000 --fit best`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

func runBench() error {
	fit, err := arena.ParseFitMode(benchFit)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(outWriter(), "workload: %d ops, requests up to %s, %s fit, seed %d\n\n",
		benchOps, humanize.IBytes(uint64(benchMaxReq)), fit, benchSeed)

	printInfo("%-10s %10s %10s %12s %8s\n", "scheme", "failed", "live", "free", "frag")
	for _, scheme := range schemes {
		a, err := openAllocator(scheme, benchSize, arena.WithFitMode(fit))
		if err != nil {
			return err
		}

		res := runWorkload(a, benchSeed, benchOps, benchMaxReq)
		printInfo("%-10s %10d %10d %12s %7.0f%%\n",
			scheme, res.Failed, res.LiveRefs,
			humanize.IBytes(uint64(res.FreeBytes)),
			fragmentation(res.Blocks)*100)

		if err := a.Close(); err != nil {
			return err
		}
	}
	return nil
}
