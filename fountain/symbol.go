// Package fountain implements the Luby-Transform-style fountain encoder
// and the peeling/Gaussian-elimination decoder that together make
// Tightbeam's erasure code. See spec.md §4.3 and §4.6.
package fountain

import "sort"

// Symbol is one fountain output symbol: the XOR of the source blocks at
// Indices. Degree is len(Indices); a systematic symbol has degree 1.
type Symbol struct {
	Indices []int
	Payload []byte
}

// Degree reports len(s.Indices).
func (s Symbol) Degree() int { return len(s.Indices) }

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func sortedCopy(indices []int) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	sort.Ints(out)
	return out
}

func equalIndices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasDuplicates(indices []int) bool {
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1] {
			return true
		}
	}
	return false
}
