package fountain

import "math/bits"

// gf2Vector is a bitset over the k source-block columns: bit i set means
// column i has coefficient 1. Adapted from the whole-integer bit-plane
// approach in original_source/common/fountain/matrix.py's solve_gf2 (and
// web/public/python/common/fountain/decoder.py's per-bit-plane solver)
// into a word-sliced bitset so a "row add" is one XOR per column word
// instead of one Python bignum division per bit-plane.
type gf2Vector []uint64

func newGF2Vector(k int) gf2Vector {
	return make(gf2Vector, (k+63)/64)
}

func indicesToVector(indices []int, k int) gf2Vector {
	v := newGF2Vector(k)
	for _, i := range indices {
		v.set(i)
	}
	return v
}

func (v gf2Vector) set(i int) { v[i/64] |= 1 << uint(i%64) }

func (v gf2Vector) get(i int) bool { return v[i/64]&(1<<uint(i%64)) != 0 }

func (v gf2Vector) xor(other gf2Vector) {
	for i := range v {
		v[i] ^= other[i]
	}
}

func (v gf2Vector) isZero() bool {
	for _, w := range v {
		if w != 0 {
			return false
		}
	}
	return true
}

func (v gf2Vector) popcount() int {
	c := 0
	for _, w := range v {
		c += bits.OnesCount64(w)
	}
	return c
}

// lowestSetBit returns the index of the lowest set column, or -1 if v is
// zero.
func (v gf2Vector) lowestSetBit() int {
	for wi, w := range v {
		if w != 0 {
			return wi*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

func (v gf2Vector) indices() []int {
	out := make([]int, 0, v.popcount())
	for wi, w := range v {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, wi*64+bit)
			w &= w - 1
		}
	}
	return out
}

func (v gf2Vector) clone() gf2Vector {
	c := make(gf2Vector, len(v))
	copy(c, v)
	return c
}

// gaussianRow is one buffered equation: coeffs are the still-unsolved
// source-block columns it references, payload is the corresponding XOR
// value.
type gaussianRow struct {
	coeffs  gf2Vector
	payload []byte
}

// gaussianEliminate reduces rows against a per-column pivot table and
// reports any rows that reduced to a single set column (a newly solvable
// block). It does not mutate the input rows: each row's coefficients and
// payload are copied before reduction.
//
// This is the Gaussian-elimination fallback of spec.md §4.6 step 6: it
// runs over buffered higher-degree symbols once the symbol count meets the
// completion-probe threshold, feeding any solved rows back into peeling.
func gaussianEliminate(rows []gaussianRow, k int) (solved []gaussianRow, reduced []gaussianRow) {
	pivots := make(map[int]gaussianRow, k)

	for _, row := range rows {
		coeffs := row.coeffs.clone()
		payload := append([]byte(nil), row.payload...)

		for {
			lo := coeffs.lowestSetBit()
			if lo < 0 {
				break
			}
			pivot, ok := pivots[lo]
			if !ok {
				break
			}
			coeffs.xor(pivot.coeffs)
			xorInto(payload, pivot.payload)
		}

		lo := coeffs.lowestSetBit()
		if lo < 0 {
			// Reduced to the empty equation: either redundant (payload
			// zero) or an inconsistency the caller surfaces as corruption.
			continue
		}

		newRow := gaussianRow{coeffs: coeffs, payload: payload}
		pivots[lo] = newRow

		if coeffs.popcount() == 1 {
			solved = append(solved, newRow)
		} else {
			reduced = append(reduced, newRow)
		}
	}

	return solved, reduced
}
