package sorted

import "testing"

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
