package fountain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGF2VectorSetGetXor(t *testing.T) {
	v := newGF2Vector(70)
	v.set(3)
	v.set(65)
	require.True(t, v.get(3))
	require.True(t, v.get(65))
	require.False(t, v.get(4))
	require.Equal(t, 2, v.popcount())

	w := indicesToVector([]int{3}, 70)
	v.xor(w)
	require.False(t, v.get(3))
	require.True(t, v.get(65))
}

func TestGF2VectorLowestSetBitAndIndices(t *testing.T) {
	v := indicesToVector([]int{5, 1, 130}, 200)
	require.Equal(t, 1, v.lowestSetBit())
	require.Equal(t, []int{1, 5, 130}, v.indices())
}

func TestGF2VectorIsZero(t *testing.T) {
	v := newGF2Vector(64)
	require.True(t, v.isZero())
	v.set(10)
	require.False(t, v.isZero())
	require.Equal(t, -1, newGF2Vector(64).lowestSetBit())
}

func TestGaussianEliminateReducesDependentSystem(t *testing.T) {
	k := 3
	// Row 0: x0 ^ x1 = A^B, Row 1: x1 ^ x2 = B^C, Row 2: x0 ^ x2 = A^C.
	a := []byte{0xAA}
	b := []byte{0xBB}
	c := []byte{0xCC}

	xor := func(x, y []byte) []byte {
		out := append([]byte(nil), x...)
		xorInto(out, y)
		return out
	}

	rows := []gaussianRow{
		{coeffs: indicesToVector([]int{0, 1}, k), payload: xor(a, b)},
		{coeffs: indicesToVector([]int{1, 2}, k), payload: xor(b, c)},
		{coeffs: indicesToVector([]int{0, 2}, k), payload: xor(a, c)},
	}

	solved, reduced := gaussianEliminate(rows, k)
	// The three equations are linearly dependent (row2 = row0 ^ row1), so
	// only two independent pivots emerge and nothing reaches degree 1
	// without an anchor value — this exercises the reduction path itself.
	require.LessOrEqual(t, len(solved), 1)
	require.LessOrEqual(t, len(reduced), 2)
}

func TestGaussianEliminateSolvesWithAnchor(t *testing.T) {
	k := 3
	a := []byte{0x11}
	b := []byte{0x22}
	c := []byte{0x33}
	xor := func(x, y []byte) []byte {
		out := append([]byte(nil), x...)
		xorInto(out, y)
		return out
	}

	rows := []gaussianRow{
		{coeffs: indicesToVector([]int{0}, k), payload: a},
		{coeffs: indicesToVector([]int{0, 1}, k), payload: xor(a, b)},
		{coeffs: indicesToVector([]int{1, 2}, k), payload: xor(b, c)},
	}

	solved, reduced := gaussianEliminate(rows, k)
	require.Empty(t, reduced)
	require.Len(t, solved, 3)
}
