package degree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRandIsDeterministic(t *testing.T) {
	a := NewRand(42, 7)
	b := NewRand(42, 7)
	require.Equal(t, a.Uint64(), b.Uint64())
}

func TestNewRandVariesByIndex(t *testing.T) {
	a := NewRand(42, 7).Uint64()
	b := NewRand(42, 8).Uint64()
	require.NotEqual(t, a, b)
}

func TestDrawStaysInRange(t *testing.T) {
	k := 50
	s := New(k, DefaultC, DefaultDelta)
	rng := NewRand(1, 0)
	for i := 0; i < 1000; i++ {
		d := s.Draw(rng)
		require.GreaterOrEqual(t, d, 1)
		require.LessOrEqual(t, d, k)
	}
}

func TestDrawDegenerateForSmallK(t *testing.T) {
	s := New(1, DefaultC, DefaultDelta)
	rng := NewRand(1, 0)
	require.Equal(t, 1, s.Draw(rng))

	s = New(0, DefaultC, DefaultDelta)
	require.Equal(t, 1, s.Draw(rng))
}

func TestSampleIndicesDistinctAndInRange(t *testing.T) {
	rng := NewRand(9, 1)
	indices := SampleIndices(rng, 20, 6)
	require.Len(t, indices, 6)

	seen := make(map[int]struct{})
	for _, idx := range indices {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 20)
		_, dup := seen[idx]
		require.False(t, dup, "unexpected duplicate index %d", idx)
		seen[idx] = struct{}{}
	}
}

func TestSampleIndicesClampsDegreeToK(t *testing.T) {
	rng := NewRand(9, 1)
	indices := SampleIndices(rng, 3, 10)
	require.Len(t, indices, 3)
}
