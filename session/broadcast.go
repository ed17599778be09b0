package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tightbeam/tightbeam/block"
	"github.com/tightbeam/tightbeam/checksum"
	"github.com/tightbeam/tightbeam/frame"
	"github.com/tightbeam/tightbeam/fountain"
	"github.com/tightbeam/tightbeam/metrics"
	"github.com/tightbeam/tightbeam/syncctl"
)

// BroadcastPackage is the materialised playback list for one broadcast
// session: metadata, the ordered wire frames a sender renders as QR codes,
// and bookkeeping stats (spec.md §4.7, "prepare_broadcast ... returns the
// playback list plus stats").
type BroadcastPackage struct {
	ID              string
	Seed            uint64
	Metadata        frame.Metadata
	Frames          []string
	SystematicCount int
	RedundantCount  int
	Sync            syncctl.Config
	Metrics         metrics.Summary
}

// PrepareBroadcast partitions payload, runs the fountain encoder, and
// interleaves the sync schedule to produce the full frame playback list a
// sender renders in order (spec.md §4.3–§4.5, §4.7).
func PrepareBroadcast(payload []byte, opts Options) (*BroadcastPackage, error) {
	blocks, origLen, err := block.Partition(payload, opts.withDefaults(0).BlockSize)
	if err != nil {
		return nil, fmt.Errorf("session: prepare broadcast: %w", err)
	}
	k := len(blocks)
	opts = opts.withDefaults(k)

	seed := opts.Seed
	if seed == 0 {
		seed = randomSeed()
	}

	digest, err := checksum.Compute(opts.IntegrityAlgorithm, payload[:origLen])
	if err != nil {
		return nil, fmt.Errorf("session: prepare broadcast: %w", err)
	}

	meta := frame.Metadata{
		BlockSize:          opts.BlockSize,
		K:                  k,
		OrigLen:            origLen,
		IntegrityCheck:     digest,
		IntegrityAlgorithm: opts.IntegrityAlgorithm,
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("session: prepare broadcast: %w", err)
	}

	rec := metrics.New()
	enc := fountain.NewEncoder(blocks, seed, opts.DegreeC, opts.DegreeDelta, rec)

	systematic := enc.EmitSystematic()
	redundant := enc.EmitN(opts.RedundantCount)

	syncCfg := opts.syncConfig()
	schedule := syncctl.NewSchedule(syncCfg)

	id := uuid.NewString()
	log.Info().
		Str("session_id", id).
		Int("k", k).
		Int("orig_len", origLen).
		Int("redundant_count", opts.RedundantCount).
		Uint64("seed", seed).
		Msg("preparing broadcast")

	var frames []string
	sequence := 0

	appendSync := func(ord syncctl.Ordinal) error {
		body := frame.SyncBody{
			Sequence:             sequence,
			Ordinal:              ord.Ordinal,
			Total:                ord.Total,
			BlockSize:            meta.BlockSize,
			K:                    meta.K,
			OrigLen:              meta.OrigLen,
			IntegrityCheck:       meta.IntegrityCheck,
			IntegrityAlgorithm:   meta.IntegrityAlgorithm,
			ConfirmationRequired: syncCfg.ConfirmationRequired,
		}
		encoded, err := frame.EncodeSync(body)
		if err != nil {
			return err
		}
		frames = append(frames, encoded)
		sequence++
		return nil
	}

	for _, ord := range schedule.Preamble() {
		if err := appendSync(ord); err != nil {
			return nil, fmt.Errorf("session: prepare broadcast: %w", err)
		}
	}

	metaFrame, err := frame.EncodeMeta(meta)
	if err != nil {
		return nil, fmt.Errorf("session: prepare broadcast: %w", err)
	}
	frames = append(frames, metaFrame)
	sequence++

	allSymbols := append(append([]fountain.Symbol{}, systematic...), redundant...)
	for _, sym := range allSymbols {
		frames = append(frames, frame.EncodeSymbol(sequence, sym.Indices, sym.Payload))
		sequence++

		if insert, ord := schedule.Tick(); insert {
			if err := appendSync(ord); err != nil {
				return nil, fmt.Errorf("session: prepare broadcast: %w", err)
			}
		}
	}

	return &BroadcastPackage{
		ID:              id,
		Seed:            seed,
		Metadata:        meta,
		Frames:          frames,
		SystematicCount: len(systematic),
		RedundantCount:  len(redundant),
		Sync:            syncCfg,
		Metrics:         rec.Summarize(),
	}, nil
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable, but a session
		// seed does not need cryptographic strength — fall back rather
		// than abort a broadcast over it.
		return uuidFallbackSeed()
	}
	return binary.BigEndian.Uint64(b[:])
}

func uuidFallbackSeed() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}
