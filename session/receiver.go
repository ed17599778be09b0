package session

import (
	"encoding/hex"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/tightbeam/tightbeam/frame"
	"github.com/tightbeam/tightbeam/fountain"
	"github.com/tightbeam/tightbeam/metrics"
	"github.com/tightbeam/tightbeam/syncctl"
	"github.com/tightbeam/tightbeam/tberr"
)

// Status is the incremental snapshot the orchestrator hands back to the
// capture pipeline after every symbol ingestion or status read
// (spec.md §4.7).
type Status struct {
	NewlyAdded      bool
	Redundant       bool
	Reject          tberr.RejectKind
	SymbolsObserved int
	UniqueSymbols   int
	Coverage        float64
	DecodeComplete  bool
	Corrupted       bool
	Recovered       []byte
	RecoveredText   string // best-effort UTF-8 decode of Recovered, "" if invalid or incomplete
	SyncState       syncctl.State
	Metrics         metrics.Summary
}

// Receiver holds one receiver-side session: sync-acquisition state, the
// fountain decoder once metadata is known, and the bookkeeping needed to
// answer Status queries. Not reentrant — spec.md §5 requires callers to
// serialise calls per session, but Receiver still guards its own state
// with a mutex the way the teacher's server/session.go Session does, so a
// caller that violates that contract fails safe instead of corrupting
// memory.
type Receiver struct {
	mu sync.Mutex

	id      string
	syncCfg syncctl.Config
	sync    *syncctl.Receiver

	metadata *frame.Metadata
	decoder  *fountain.Decoder
	metrics  *metrics.Recorder

	sequencesSeen map[int]struct{}
	uniqueIndices map[int]struct{}
}

// NewReceiver builds a receiver-side session with no metadata installed
// yet (state IDLE).
func NewReceiver(id string, cfg syncctl.Config) *Receiver {
	return &Receiver{
		id:            id,
		syncCfg:       cfg.WithDefaults(),
		sync:          syncctl.NewReceiver(cfg),
		sequencesSeen: make(map[int]struct{}),
		uniqueIndices: make(map[int]struct{}),
	}
}

// ID returns this session's handle.
func (r *Receiver) ID() string { return r.id }

// MetricsRecorder returns the session's underlying metrics recorder, or nil
// if no metadata has been installed yet. Exposed so a benchmark or replay
// harness driving many sessions can fold their metrics together with
// metrics.Recorder.Merge instead of only seeing each session's own summary.
func (r *Receiver) MetricsRecorder() *metrics.Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Reset installs metadata directly and clears all decoder state
// (spec.md §4.7, reset_receiver). InvalidMetadata is the only condition
// that refuses to create the session (spec.md §7).
func (r *Receiver) Reset(blockSize, k, origLen int, integrityAlgorithm, integrityCheck string) error {
	meta := frame.Metadata{
		BlockSize:          blockSize,
		K:                  k,
		OrigLen:            origLen,
		IntegrityCheck:     integrityCheck,
		IntegrityAlgorithm: integrityAlgorithm,
	}
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("session: reset receiver: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.installMetadataLocked(meta)
	r.sync.Reset()
	r.sync.ObserveMetadata()
	return nil
}

// installMetadataLocked builds a fresh decoder for meta and clears the
// per-session sequence/index bookkeeping. Callers hold r.mu.
func (r *Receiver) installMetadataLocked(meta frame.Metadata) {
	r.metadata = &meta
	r.metrics = metrics.New()
	r.decoder = fountain.NewDecoder(meta.BlockSize, meta.K, meta.OrigLen, meta.IntegrityAlgorithm, meta.IntegrityCheck, r.metrics)
	r.sequencesSeen = make(map[int]struct{})
	r.uniqueIndices = make(map[int]struct{})
}

// sameMetadata reports whether meta matches the currently installed
// metadata (spec.md §4.5: matching metadata must not force a reset).
func (r *Receiver) sameMetadata(meta frame.Metadata) bool {
	return r.metadata != nil && *r.metadata == meta
}

// IngestFrame parses one raw wire frame (as decoded from a scanned QR
// code) and routes it by kind: Sync frames drive the sync-acquisition
// state machine, a Meta frame installs metadata directly, and Symbol
// frames feed the fountain decoder (spec.md §4.5–§4.7).
func (r *Receiver) IngestFrame(raw string) (Status, error) {
	r.mu.Lock()
	k := 0
	if r.metadata != nil {
		k = r.metadata.K
	}
	r.mu.Unlock()

	f, err := frame.Parse(raw, k)
	if err != nil {
		r.recordRejectionAsync(tberr.RejectMalformed)
		return r.Status(), fmt.Errorf("session: ingest frame: %w", err)
	}

	switch f.Kind {
	case frame.KindMeta:
		return r.ingestMeta(f.Meta)
	case frame.KindSync:
		return r.ingestSync(f.Sync)
	case frame.KindSymbol:
		return r.ingestSymbol(f.SymbolSequence, f.SymbolIndices, f.SymbolPayload)
	default:
		return r.Status(), fmt.Errorf("session: ingest frame: %w", tberr.ErrMalformedFrame)
	}
}

func (r *Receiver) ingestMeta(meta frame.Metadata) (Status, error) {
	r.mu.Lock()
	if r.metadata == nil || !r.sameMetadata(meta) {
		r.installMetadataLocked(meta)
	}
	r.sync.ObserveMetadata()
	r.mu.Unlock()
	return r.Status(), nil
}

func (r *Receiver) ingestSync(body frame.SyncBody) (Status, error) {
	meta := body.Metadata()

	r.mu.Lock()
	if r.metadata == nil {
		r.installMetadataLocked(meta)
	} else if !r.sameMetadata(meta) {
		// spec.md §4.5: matching metadata must never force a reset, but
		// this sync disagrees with what's installed — the conservative
		// choice is to keep the installed metadata and just log it,
		// since a resync must never discard already-solved blocks.
		log.Warn().Str("session_id", r.id).Msg("sync frame metadata disagrees with installed metadata; ignoring")
	}
	justLocked := r.sync.ObserveSync(body.Sequence)
	r.mu.Unlock()

	if justLocked {
		log.Info().Str("session_id", r.id).Msg("sync lock acquired")
	}
	return r.Status(), nil
}

// AddSymbol ingests one symbol by its raw wire fields, matching spec.md
// §4.7's receiver_add_symbol(sequence, indices, payload_hex) contract
// exactly, for callers that already have a decoded (sequence, indices,
// payload_hex) tuple rather than a full "S:..." wire string.
func (r *Receiver) AddSymbol(sequence int, indices []int, payloadHex string) (Status, error) {
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		r.recordRejectionAsync(tberr.RejectMalformed)
		return r.Status(), fmt.Errorf("session: add symbol: %w: %v", tberr.ErrMalformedFrame, err)
	}
	return r.ingestSymbol(sequence, indices, payload)
}

func (r *Receiver) ingestSymbol(sequence int, indices []int, payload []byte) (Status, error) {
	r.mu.Lock()

	if r.metadata == nil {
		r.mu.Unlock()
		return r.Status(), fmt.Errorf("session: add symbol: %w", tberr.ErrNotLocked)
	}

	if _, dup := r.sequencesSeen[sequence]; dup {
		r.mu.Unlock()
		status := r.Status()
		status.Redundant = true
		status.Reject = tberr.RejectDuplicate
		return status, nil
	}
	r.sequencesSeen[sequence] = struct{}{}

	outcome, err := r.decoder.AddSymbol(indices, payload)
	if err != nil {
		r.mu.Unlock()
		status := r.Status()
		status.Reject = outcome.Reject
		return status, fmt.Errorf("session: add symbol: %w", err)
	}

	if outcome.Added {
		for _, idx := range indices {
			r.uniqueIndices[idx] = struct{}{}
		}
		r.sync.ObserveSymbol()
	}

	complete := r.decoder.Complete()
	corrupted := r.decoder.Corrupted()
	r.mu.Unlock()

	if corrupted {
		log.Warn().Str("session_id", r.id).Msg("integrity check failed on decoded payload")
	} else if complete {
		log.Info().Str("session_id", r.id).Msg("decode complete")
	}

	status := r.Status()
	status.NewlyAdded = outcome.Added
	status.Redundant = !outcome.Added && outcome.Reject == tberr.RejectRedundant
	status.Reject = outcome.Reject
	return status, nil
}

// CheckWatchdog runs the sync watchdog and returns whether a resync
// occurred (spec.md §4.5).
func (r *Receiver) CheckWatchdog() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sync.CheckWatchdog()
}

// Status is an idempotent read of the current session status
// (spec.md §4.7, receiver_status).
func (r *Receiver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Receiver) statusLocked() Status {
	st := Status{SyncState: r.sync.State()}
	if r.metadata == nil || r.decoder == nil {
		return st
	}

	st.SymbolsObserved = len(r.sequencesSeen)
	st.UniqueSymbols = len(r.uniqueIndices)
	st.Coverage = r.decoder.Coverage()
	st.DecodeComplete = r.decoder.Complete()
	st.Corrupted = r.decoder.Corrupted()
	if st.DecodeComplete {
		st.Recovered = r.decoder.Recovered()
		if utf8.Valid(st.Recovered) {
			st.RecoveredText = string(st.Recovered)
		}
	}
	if r.metrics != nil {
		st.Metrics = r.metrics.Summarize()
	}
	return st
}

func (r *Receiver) recordRejectionAsync(kind tberr.RejectKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.RecordRejected(string(kind))
	}
}
