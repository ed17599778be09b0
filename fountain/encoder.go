package fountain

import (
	"github.com/tightbeam/tightbeam/degree"
	"github.com/tightbeam/tightbeam/metrics"
)

// diversifySalt perturbs the rejection-resample draw's seed so the retry is
// still a deterministic function of (seed, emission index) rather than of
// wall-clock or ambient randomness.
const diversifySalt = 1_000_000_007

// Encoder emits Tightbeam's fountain symbol stream for a fixed set of
// source blocks: exactly k systematic symbols in order, followed by an
// unbounded stream of redundant symbols drawn from the Robust Soliton
// distribution (spec.md §4.3).
type Encoder struct {
	blocks  [][]byte
	k       int
	seed    uint64
	sampler *degree.Sampler

	emitted     uint64
	prevIndices []int
	metrics     *metrics.Recorder
}

// NewEncoder builds an Encoder over blocks, seeded for reproducibility.
// c and delta parameterise the Robust Soliton distribution; pass 0 for
// either to use degree.DefaultC / degree.DefaultDelta. rec may be nil.
func NewEncoder(blocks [][]byte, seed uint64, c, delta float64, rec *metrics.Recorder) *Encoder {
	k := len(blocks)
	return &Encoder{
		blocks:  blocks,
		k:       k,
		seed:    seed,
		sampler: degree.New(k, c, delta),
		metrics: rec,
	}
}

// K returns the number of source blocks this encoder emits over.
func (e *Encoder) K() int { return e.k }

// Emitted returns how many symbols have been generated so far.
func (e *Encoder) Emitted() uint64 { return e.emitted }

// Next generates and returns the next symbol in the deterministic stream.
// The first K() calls are systematic; every call after that is redundant.
func (e *Encoder) Next() Symbol {
	idx := e.emitted
	e.emitted++

	if idx < uint64(e.k) {
		payload := make([]byte, len(e.blocks[idx]))
		copy(payload, e.blocks[idx])
		sym := Symbol{Indices: []int{int(idx)}, Payload: payload}
		if e.metrics != nil {
			e.metrics.RecordDegree(1)
		}
		e.prevIndices = sym.Indices
		return sym
	}

	var indices []int
	for attempt := 0; attempt < 2; attempt++ {
		rng := degree.NewRand(e.seed, idx+uint64(attempt)*diversifySalt)
		d := e.sampler.Draw(rng)
		candidate := sortedCopy(degree.SampleIndices(rng, e.k, d))
		indices = candidate
		if attempt == 1 || !equalIndices(candidate, e.prevIndices) {
			break
		}
	}

	payload := e.xorBlocks(indices)
	sym := Symbol{Indices: indices, Payload: payload}
	if e.metrics != nil {
		e.metrics.RecordDegree(len(indices))
	}
	e.prevIndices = indices
	return sym
}

// EmitSystematic returns the K() systematic symbols. It only produces a
// meaningful result when called before any redundant symbols have been
// generated.
func (e *Encoder) EmitSystematic() []Symbol {
	out := make([]Symbol, 0, e.k)
	for e.emitted < uint64(e.k) {
		out = append(out, e.Next())
	}
	return out
}

// EmitN generates the next n symbols, whatever phase (systematic or
// redundant) the encoder is currently in.
func (e *Encoder) EmitN(n int) []Symbol {
	out := make([]Symbol, n)
	for i := range out {
		out[i] = e.Next()
	}
	return out
}

func (e *Encoder) xorBlocks(indices []int) []byte {
	out := make([]byte, len(e.blocks[indices[0]]))
	copy(out, e.blocks[indices[0]])
	for _, idx := range indices[1:] {
		xorInto(out, e.blocks[idx])
	}
	return out
}
