// Package metrics accumulates counters and samples produced by the
// fountain encoder and decoder: degree histogram, decode attempts and
// durations, and per-reason rejection counts.
package metrics

import (
	"sync"
	"time"
)

// Recorder collects statistics for a single session's encode or decode
// run. It is safe for concurrent use, mirroring the mutex discipline the
// rest of this repository applies to shared session state.
type Recorder struct {
	mu sync.Mutex

	degreeHist map[int]int

	decodeAttempts  int
	decodeSuccesses int
	decodeFailures  int
	decodeDurations []time.Duration
	symbolsUsed     []int
	symbolsAvail    []int

	rejected map[string]int
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		degreeHist: make(map[int]int),
		rejected:   make(map[string]int),
	}
}

// RecordDegree records the degree of a symbol as it is emitted or accepted.
func (r *Recorder) RecordDegree(degree int) {
	if degree <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degreeHist[degree]++
}

// RecordDecode records the outcome of one decode attempt: how long it
// took, whether it succeeded, how many symbols contributed to the
// decision, and how many symbols were available at the time.
func (r *Recorder) RecordDecode(d time.Duration, success bool, symbolsUsed, symbolsAvailable int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decodeAttempts++
	r.decodeDurations = append(r.decodeDurations, d)
	r.symbolsUsed = append(r.symbolsUsed, symbolsUsed)
	r.symbolsAvail = append(r.symbolsAvail, symbolsAvailable)
	if success {
		r.decodeSuccesses++
	} else {
		r.decodeFailures++
	}
}

// RecordRejected records a symbol that was dropped before peeling, keyed
// by the rejection kind (e.g. "redundant", "corrupt", "duplicate",
// "malformed", "index_out_of_range").
func (r *Recorder) RecordRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[reason]++
}

// Summary is the aggregated, JSON-friendly view of a Recorder, matching
// the shape reported by the orchestrator's Status.
type Summary struct {
	TotalSymbols            int            `json:"total_symbols"`
	DegreeHistogram         map[int]int    `json:"degree_hist"`
	AverageDegree           float64        `json:"average_degree"`
	DecodeAttempts          int            `json:"decode_attempts"`
	DecodeFailures          int            `json:"decode_failures"`
	DecodeSuccessRate       float64        `json:"decode_success_rate"`
	AverageDecodeMillis     float64        `json:"average_decode_duration_ms"`
	AverageSymbolsUsed      float64        `json:"average_symbols_used"`
	AverageSymbolsAvailable float64        `json:"average_symbols_available"`
	RejectedSymbols         map[string]int `json:"rejected_symbols"`
}

// Summarize returns a snapshot of the recorder's current state.
func (r *Recorder) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	hist := make(map[int]int, len(r.degreeHist))
	totalSymbols := 0
	weightedDegree := 0
	for degree, count := range r.degreeHist {
		hist[degree] = count
		totalSymbols += count
		weightedDegree += degree * count
	}

	var avgDegree float64
	if totalSymbols > 0 {
		avgDegree = float64(weightedDegree) / float64(totalSymbols)
	}

	var avgDuration float64
	if n := len(r.decodeDurations); n > 0 {
		var total time.Duration
		for _, d := range r.decodeDurations {
			total += d
		}
		avgDuration = float64(total.Microseconds()) / float64(n) / 1000.0
	}

	var successRate float64
	if r.decodeAttempts > 0 {
		successRate = float64(r.decodeSuccesses) / float64(r.decodeAttempts)
	}

	var avgSymbolsUsed float64
	if n := len(r.symbolsUsed); n > 0 {
		sum := 0
		for _, v := range r.symbolsUsed {
			sum += v
		}
		avgSymbolsUsed = float64(sum) / float64(n)
	}

	var avgSymbolsAvail float64
	if n := len(r.symbolsAvail); n > 0 {
		sum := 0
		for _, v := range r.symbolsAvail {
			sum += v
		}
		avgSymbolsAvail = float64(sum) / float64(n)
	}

	rejected := make(map[string]int, len(r.rejected))
	for k, v := range r.rejected {
		rejected[k] = v
	}

	return Summary{
		TotalSymbols:            totalSymbols,
		DegreeHistogram:         hist,
		AverageDegree:           avgDegree,
		DecodeAttempts:          r.decodeAttempts,
		DecodeFailures:          r.decodeFailures,
		DecodeSuccessRate:       successRate,
		AverageDecodeMillis:     avgDuration,
		AverageSymbolsUsed:      avgSymbolsUsed,
		AverageSymbolsAvailable: avgSymbolsAvail,
		RejectedSymbols:         rejected,
	}
}

// Merge folds another Recorder's counters into r, used when a session's
// metrics need to be combined with a replay or benchmark run's.
func (r *Recorder) Merge(other *Recorder) {
	other.mu.Lock()
	snapshotHist := make(map[int]int, len(other.degreeHist))
	for k, v := range other.degreeHist {
		snapshotHist[k] = v
	}
	durations := append([]time.Duration(nil), other.decodeDurations...)
	used := append([]int(nil), other.symbolsUsed...)
	avail := append([]int(nil), other.symbolsAvail...)
	rejected := make(map[string]int, len(other.rejected))
	for k, v := range other.rejected {
		rejected[k] = v
	}
	attempts, successes, failures := other.decodeAttempts, other.decodeSuccesses, other.decodeFailures
	other.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range snapshotHist {
		r.degreeHist[k] += v
	}
	r.decodeDurations = append(r.decodeDurations, durations...)
	r.symbolsUsed = append(r.symbolsUsed, used...)
	r.symbolsAvail = append(r.symbolsAvail, avail...)
	for k, v := range rejected {
		r.rejected[k] += v
	}
	r.decodeAttempts += attempts
	r.decodeSuccesses += successes
	r.decodeFailures += failures
}
