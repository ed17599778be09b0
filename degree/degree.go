// Package degree implements the Robust Soliton degree distribution used
// by the fountain encoder to choose how many source blocks a redundant
// output symbol XORs together.
//
// Ported from original_source/common/fountain/encoder.py's
// _build_robust_soliton_cdf / _robust_soliton, with the ambient random
// source replaced by an explicit, seeded generator so a draw is a pure
// function of (seed, emission index) rather than of ambient process state
// (spec.md §9, "Determinism seeds").
package degree

import (
	"math"
	"math/rand/v2"
)

// DefaultC and DefaultDelta match the original encoder's defaults.
const (
	DefaultC     = 0.1
	DefaultDelta = 0.5
)

// Sampler draws degrees in [1, k] from the Robust Soliton distribution for
// a fixed k, c, and delta. It is immutable once built: all per-draw state
// lives in the caller-supplied rand.Rand, so one Sampler can serve many
// independent deterministic streams.
type Sampler struct {
	k   int
	cdf []float64 // cumulative distribution over degrees 1..k
}

// New builds the cumulative Robust Soliton distribution for k source
// blocks with parameters c and delta. For k <= 1 every draw returns 1.
func New(k int, c, delta float64) *Sampler {
	if c <= 0 {
		c = DefaultC
	}
	if delta <= 0 {
		delta = DefaultDelta
	}
	if delta > 0.999999 {
		delta = 0.999999
	}

	s := &Sampler{k: k}
	if k <= 1 {
		s.cdf = []float64{1.0}
		return s
	}

	r := c * math.Log(float64(k)/delta) * math.Sqrt(float64(k))
	if r < 1.0 {
		r = 1.0
	}
	threshold := int(float64(k) / r)

	rho := make([]float64, k)
	tau := make([]float64, k)

	rho[0] = 1.0 / float64(k)
	for d := 2; d <= k; d++ {
		rho[d-1] = 1.0 / float64(d*(d-1))
	}

	if threshold >= 1 {
		upper := threshold
		if upper > k {
			upper = k
		}
		for d := 1; d < upper; d++ {
			tau[d-1] = r / float64(d*k)
		}
		if threshold <= k {
			tau[threshold-1] = r * math.Log(r/delta) / float64(k)
		}
	}

	total := 0.0
	for i := 0; i < k; i++ {
		total += rho[i] + tau[i]
	}

	cdf := make([]float64, k)
	if total == 0 {
		for i := 0; i < k; i++ {
			cdf[i] = float64(i+1) / float64(k)
		}
	} else {
		running := 0.0
		for i := 0; i < k; i++ {
			running += (rho[i] + tau[i]) / total
			cdf[i] = running
		}
		cdf[k-1] = 1.0 // guarantee the final bucket catches rounding error
	}

	s.cdf = cdf
	return s
}

// Draw samples one degree in [1, k] using rng. Callers seed rng
// deterministically (see NewRand) to keep the whole encode/decode pipeline
// reproducible from (seed, emission_index).
func (s *Sampler) Draw(rng *rand.Rand) int {
	if s.k <= 1 {
		return 1
	}
	r := rng.Float64()
	for i, cutoff := range s.cdf {
		if r <= cutoff {
			return i + 1
		}
	}
	return s.k
}

// NewRand returns a deterministic generator for emission index idx under
// session seed. Keying a PCG source on the (seed, idx) pair means every
// emitted symbol gets an independent, reproducible draw without any shared
// mutable RNG state.
func NewRand(seed uint64, idx uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, idx))
}

// SampleIndices draws d distinct indices from [0, k) uniformly without
// replacement, via a partial Fisher-Yates shuffle. Equivalent to Python's
// random.sample(range(k), d) in the original encoder.
func SampleIndices(rng *rand.Rand, k, d int) []int {
	if d > k {
		d = k
	}
	pool := make([]int, k)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < d; i++ {
		j := i + rng.IntN(k-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]int, d)
	copy(out, pool[:d])
	return out
}
