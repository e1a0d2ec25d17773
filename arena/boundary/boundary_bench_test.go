package boundary

import (
	"testing"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
)

func BenchmarkAllocateFree(b *testing.B) {
	a, err := New(1 << 20)
	if err != nil {
		b.Fatal(err)
	}
	defer a.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ref, _, err := a.Allocate(128)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Deallocate(ref); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAllocate_Fragmented(b *testing.B) {
	for _, fit := range []arena.FitMode{arena.FirstFit, arena.BestFit, arena.WorstFit} {
		b.Run(fit.String(), func(b *testing.B) {
			a, err := New(1<<20, arena.WithFitMode(fit))
			if err != nil {
				b.Fatal(err)
			}
			defer a.Close()

			// Punch holes so the fit walk has work to do.
			refs := make([]arena.Ref, 0, 256)
			for i := 0; i < 256; i++ {
				ref, _, err := a.Allocate(64 + i%512)
				if err != nil {
					b.Fatal(err)
				}
				refs = append(refs, ref)
			}
			for i := 0; i < len(refs); i += 2 {
				if err := a.Deallocate(refs[i]); err != nil {
					b.Fatal(err)
				}
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ref, _, err := a.Allocate(64)
				if err != nil {
					b.Fatal(err)
				}
				if err := a.Deallocate(ref); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
