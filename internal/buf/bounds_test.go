package buf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AddOverflowSafe(t *testing.T) {
	v, ok := AddOverflowSafe(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = AddOverflowSafe(math.MaxInt, 1)
	assert.False(t, ok)

	_, ok = AddOverflowSafe(math.MinInt, -1)
	assert.False(t, ok)
}

func Test_Slice(t *testing.T) {
	b := []byte{0, 1, 2, 3, 4}

	s, ok := Slice(b, 1, 3)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, s)

	_, ok = Slice(b, 4, 2)
	assert.False(t, ok)

	_, ok = Slice(b, -1, 2)
	assert.False(t, ok)

	_, ok = Slice(b, 2, -1)
	assert.False(t, ok)

	s, ok = Slice(b, 5, 0)
	assert.True(t, ok)
	assert.Empty(t, s)
}

func Test_Has(t *testing.T) {
	b := make([]byte, 10)
	assert.True(t, Has(b, 0, 10))
	assert.False(t, Has(b, 8, 3))
}
