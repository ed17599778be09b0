package fountain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolDegree(t *testing.T) {
	require.Equal(t, 1, Symbol{Indices: []int{0}}.Degree())
	require.Equal(t, 3, Symbol{Indices: []int{0, 1, 2}}.Degree())
	require.Equal(t, 0, Symbol{}.Degree())
}

func TestXorInto(t *testing.T) {
	dst := []byte{0x0F, 0xFF}
	xorInto(dst, []byte{0xFF, 0x0F})
	require.Equal(t, []byte{0xF0, 0xF0}, dst)
}

func TestIsZero(t *testing.T) {
	require.True(t, isZero([]byte{0, 0, 0}))
	require.False(t, isZero([]byte{0, 1, 0}))
	require.True(t, isZero(nil))
}

func TestSortedCopyDoesNotMutateInput(t *testing.T) {
	in := []int{3, 1, 2}
	out := sortedCopy(in)
	require.Equal(t, []int{1, 2, 3}, out)
	require.Equal(t, []int{3, 1, 2}, in)
}

func TestEqualIndices(t *testing.T) {
	require.True(t, equalIndices([]int{1, 2}, []int{1, 2}))
	require.False(t, equalIndices([]int{1, 2}, []int{1, 3}))
	require.False(t, equalIndices([]int{1, 2}, []int{1}))
}

func TestHasDuplicates(t *testing.T) {
	require.True(t, hasDuplicates([]int{1, 1, 2}))
	require.False(t, hasDuplicates([]int{1, 2, 3}))
	require.False(t, hasDuplicates(nil))
}
