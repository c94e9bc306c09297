package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRand_SameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint32(), b.Uint32())
	}
}

func TestRand_Float64Range(t *testing.T) {
	r := New(7)
	for i := 0; i < 10000; i++ {
		v := r.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestRand_IntnRange(t *testing.T) {
	r := New(7)
	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		v := r.Intn(10)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 10)
		seen[v] = true
	}
	assert.Len(t, seen, 10)
}

func TestRand_IntnPanicsOnNonPositive(t *testing.T) {
	r := New(1)
	assert.Panics(t, func() { r.Intn(0) })
}

func TestPerm(t *testing.T) {
	r := New(3)
	p := Perm(r, 20)

	require.Len(t, p, 20)
	seen := make([]bool, 20)
	for _, v := range p {
		seen[v] = true
	}
	for i, ok := range seen {
		assert.True(t, ok, "missing %d", i)
	}
}

func TestUniform(t *testing.T) {
	r := New(9)
	for i := 0; i < 1000; i++ {
		v := Uniform(r, 2, 6)
		assert.GreaterOrEqual(t, v, 2.0)
		assert.Less(t, v, 6.0)
	}
}
