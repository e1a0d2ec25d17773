package buddy

import "testing"

func BenchmarkAllocateFree(b *testing.B) {
	a, err := New(20)
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

func BenchmarkSplitMergeCascade(b *testing.B) {
	a, err := New(20)
	if err != nil {
		b.Fatal(err)
	}
	defer a.Close()

	// Each iteration splits from the full pool down to the minimum order
	// and merges all the way back.
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ref, _, err := a.Allocate(1)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Deallocate(ref); err != nil {
			b.Fatal(err)
		}
	}
}
