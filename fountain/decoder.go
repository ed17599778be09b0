package fountain

import (
	"fmt"
	"time"

	"github.com/tightbeam/tightbeam/checksum"
	"github.com/tightbeam/tightbeam/metrics"
	"github.com/tightbeam/tightbeam/tberr"
)

// AddOutcome reports what happened to one ingested symbol.
type AddOutcome struct {
	Added  bool             // true if the symbol contributed new information
	Reject tberr.RejectKind // set (non-empty) when Added is false
	Solved []int            // block indices newly solved by this ingestion
}

// Decoder accumulates fountain symbols for one broadcast and reconstructs
// the original payload once enough independent symbols have arrived. State
// and control flow follow spec.md §4.6: normalise, reject, duplicate-check,
// degree-1 peel-and-cascade, buffer, and a Gaussian-elimination fallback
// once the completion probe's threshold is met.
type Decoder struct {
	K                  int
	BlockSize          int
	OrigLen            int
	IntegrityAlgorithm string
	IntegrityCheck     string

	solved       []bool
	solvedBlocks [][]byte
	solvedCount  int

	buffer []gaussianRow
	seen   map[string]struct{}

	complete  bool
	corrupted bool
	recovered []byte

	metrics *metrics.Recorder
}

// NewDecoder builds a Decoder for the given metadata. metrics may be nil.
func NewDecoder(blockSize, k, origLen int, integrityAlgorithm, integrityCheck string, rec *metrics.Recorder) *Decoder {
	d := &Decoder{
		K:                  k,
		BlockSize:          blockSize,
		OrigLen:            origLen,
		IntegrityAlgorithm: integrityAlgorithm,
		IntegrityCheck:     integrityCheck,
		solved:             make([]bool, k),
		solvedBlocks:       make([][]byte, k),
		seen:               make(map[string]struct{}),
		metrics:            rec,
	}
	if k == 0 {
		// spec.md §8: orig_len == 0 implies k == 0 and the decoder
		// completes immediately on metadata, with nothing to solve.
		d.finish()
	}
	return d
}

// Complete reports whether every source block has been solved AND the
// integrity check (if any) has passed.
func (d *Decoder) Complete() bool { return d.complete }

// Corrupted reports whether a completed decode failed its integrity check.
// Per spec.md §4.6 / §9 this latches: it is only cleared by building a new
// Decoder (session reset).
func (d *Decoder) Corrupted() bool { return d.corrupted }

// Coverage returns the fraction of source blocks solved so far.
func (d *Decoder) Coverage() float64 {
	if d.K == 0 {
		return 1
	}
	return float64(d.solvedCount) / float64(d.K)
}

// Recovered returns the reconstructed payload once Complete() is true and
// Corrupted() is false.
func (d *Decoder) Recovered() []byte { return d.recovered }

// AddSymbol ingests one received symbol. indices need not be sorted by the
// caller; AddSymbol validates and normalises them internally, and rejects a
// symbol that repeats an index with ErrMalformedFrame.
func (d *Decoder) AddSymbol(indices []int, payload []byte) (AddOutcome, error) {
	if len(payload) != d.BlockSize {
		if d.metrics != nil {
			d.metrics.RecordRejected(string(tberr.RejectMalformed))
		}
		return AddOutcome{Reject: tberr.RejectMalformed}, fmt.Errorf("fountain: payload length %d != block_size %d: %w", len(payload), d.BlockSize, tberr.ErrMalformedFrame)
	}
	sorted := sortedCopy(indices)
	if hasDuplicates(sorted) {
		if d.metrics != nil {
			d.metrics.RecordRejected(string(tberr.RejectMalformed))
		}
		return AddOutcome{Reject: tberr.RejectMalformed}, fmt.Errorf("fountain: duplicate index in symbol indices %v: %w", sorted, tberr.ErrMalformedFrame)
	}
	for _, idx := range sorted {
		if idx < 0 || idx >= d.K {
			if d.metrics != nil {
				d.metrics.RecordRejected(string(tberr.RejectOutOfRange))
			}
			return AddOutcome{Reject: tberr.RejectOutOfRange}, fmt.Errorf("fountain: index %d out of range [0, %d): %w", idx, d.K, tberr.ErrIndexOutOfRange)
		}
	}

	normIdx, normPayload := d.normalise(sorted, payload)

	if len(normIdx) == 0 {
		if isZero(normPayload) {
			if d.metrics != nil {
				d.metrics.RecordRejected(string(tberr.RejectRedundant))
			}
			return AddOutcome{Reject: tberr.RejectRedundant}, nil
		}
		if d.metrics != nil {
			d.metrics.RecordRejected(string(tberr.RejectCorrupt))
		}
		return AddOutcome{Reject: tberr.RejectCorrupt}, nil
	}

	sig := signature(normIdx)
	if _, dup := d.seen[sig]; dup {
		if d.metrics != nil {
			d.metrics.RecordRejected(string(tberr.RejectDuplicate))
		}
		return AddOutcome{Reject: tberr.RejectDuplicate}, nil
	}
	d.seen[sig] = struct{}{}
	if d.metrics != nil {
		d.metrics.RecordDegree(len(sorted))
	}

	solvedNow := d.absorb(normIdx, normPayload)

	if d.solvedCount < d.K && len(d.seen) >= d.K {
		solvedNow = append(solvedNow, d.runGaussianElimination()...)
	}

	if d.solvedCount == d.K && !d.complete {
		d.finish()
	}

	return AddOutcome{Added: true, Solved: solvedNow}, nil
}

// normalise subtracts already-solved blocks out of an incoming symbol,
// returning the reduced index set and payload (spec.md §4.6 step 1).
func (d *Decoder) normalise(indices []int, payload []byte) ([]int, []byte) {
	out := make([]byte, len(payload))
	copy(out, payload)

	remaining := make([]int, 0, len(indices))
	for _, idx := range indices {
		if d.solved[idx] {
			xorInto(out, d.solvedBlocks[idx])
			continue
		}
		remaining = append(remaining, idx)
	}
	return remaining, out
}

// absorb runs the degree-1 peel-and-cascade fast path (spec.md §4.6 step
// 4), buffering anything of higher degree. It returns the indices newly
// solved, including any solved by cascading through the buffer.
func (d *Decoder) absorb(indices []int, payload []byte) []int {
	var solvedNow []int

	queue := []gaussianRow{{coeffs: indicesToVector(indices, d.K), payload: payload}}
	for len(queue) > 0 {
		row := queue[0]
		queue = queue[1:]

		// Fold out any block solved while this row waited in the queue.
		for _, idx := range row.coeffs.indices() {
			if d.solved[idx] {
				row.coeffs[idx/64] &^= 1 << uint(idx%64)
				xorInto(row.payload, d.solvedBlocks[idx])
			}
		}

		lo := row.coeffs.lowestSetBit()
		if lo < 0 {
			continue // fully cancelled after cascading — no new information
		}
		if row.coeffs.popcount() > 1 {
			d.buffer = append(d.buffer, row)
			continue
		}

		// Degree 1: solve it.
		blockIdx := lo
		d.solveBlock(blockIdx, row.payload)
		solvedNow = append(solvedNow, blockIdx)

		// Cascade: fold the newly solved block out of every buffered row.
		remaining := d.buffer[:0]
		for _, buffered := range d.buffer {
			if !buffered.coeffs.get(blockIdx) {
				remaining = append(remaining, buffered)
				continue
			}
			buffered.coeffs = buffered.coeffs.clone()
			buffered.coeffs[blockIdx/64] &^= 1 << uint(blockIdx%64)
			payloadCopy := append([]byte(nil), buffered.payload...)
			xorInto(payloadCopy, row.payload)
			buffered.payload = payloadCopy
			queue = append(queue, buffered)
		}
		d.buffer = remaining
	}

	return solvedNow
}

func (d *Decoder) solveBlock(idx int, payload []byte) {
	if d.solved[idx] {
		return
	}
	d.solved[idx] = true
	d.solvedBlocks[idx] = payload
	d.solvedCount++
	if d.metrics != nil {
		d.metrics.RecordDecode(0, false, d.solvedCount, len(d.seen))
	}
}

// runGaussianElimination attempts the GF(2) fallback over the buffered
// higher-degree symbols (spec.md §4.6 step 6), feeding any solved rows
// back into peeling. It returns the block indices newly solved.
func (d *Decoder) runGaussianElimination() []int {
	if len(d.buffer) == 0 {
		return nil
	}
	start := time.Now()
	solvedRows, reduced := gaussianEliminate(d.buffer, d.K)
	d.buffer = reduced

	var solvedNow []int
	for _, row := range solvedRows {
		blockIdx := row.coeffs.lowestSetBit()
		if blockIdx < 0 || d.solved[blockIdx] {
			continue
		}
		more := d.absorb([]int{blockIdx}, row.payload)
		solvedNow = append(solvedNow, more...)
	}

	if d.metrics != nil {
		d.metrics.RecordDecode(time.Since(start), len(solvedRows) > 0, d.solvedCount, len(d.seen))
	}
	return solvedNow
}

// finish runs the integrity check once every block is solved (spec.md
// §4.6, "Integrity check"). On mismatch it latches Corrupted() rather than
// discarding state, per the conservative policy spec.md §9 recommends.
func (d *Decoder) finish() {
	joined := make([]byte, 0, d.K*d.BlockSize)
	for _, b := range d.solvedBlocks {
		joined = append(joined, b...)
	}
	if d.OrigLen < len(joined) {
		joined = joined[:d.OrigLen]
	}

	if d.IntegrityCheck == "" {
		d.recovered = joined
		d.complete = true
		return
	}

	ok, err := checksum.Verify(d.IntegrityAlgorithm, joined, d.IntegrityCheck)
	if err != nil || !ok {
		d.corrupted = true
		return
	}
	d.recovered = joined
	d.complete = true
}

func signature(indices []int) string {
	b := make([]byte, 0, len(indices)*4)
	for i, idx := range indices {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendInt(b, idx)
	}
	return string(b)
}

func appendInt(b []byte, v int) []byte {
	if v == 0 {
		return append(b, '0')
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
