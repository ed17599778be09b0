// Package session implements the Tightbeam session orchestrator
// (spec.md §4.7): PrepareBroadcast for the sender side, and Reset /
// AddSymbol / Status for the receiver side, plus a Registry for managing
// many concurrent receiver sessions. Grounded on the teacher's
// server/handler.go (frame-kind routing) and server/session.go
// (SessionStore lifecycle), and on
// web/public/python/simulation.py's prepare_broadcast / ReceiverSession /
// reset_receiver / receiver_add_symbol / receiver_status functions.
package session

import (
	"github.com/tightbeam/tightbeam/checksum"
	"github.com/tightbeam/tightbeam/syncctl"
)

// Options configures PrepareBroadcast. Zero values fall back to spec.md
// §6's documented session defaults.
type Options struct {
	BlockSize            int
	RedundantCount       int // 0 => ceil(0.75 * k)
	SyncPreambleCount    int
	SyncInterval         int
	ConfirmationRequired int
	Seed                 uint64 // 0 => a fresh random seed is drawn
	IntegrityAlgorithm   string // "" => "sha256"
	DegreeC, DegreeDelta float64
}

// DefaultBlockSize matches spec.md §6.
const DefaultBlockSize = 64

func (o Options) withDefaults(k int) Options {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.RedundantCount <= 0 {
		o.RedundantCount = ceilFrac(k, 3, 4) // ceil(0.75 * k)
	}
	if o.IntegrityAlgorithm == "" {
		o.IntegrityAlgorithm = checksum.SHA256
	}
	return o
}

func (o Options) syncConfig() syncctl.Config {
	return syncctl.Config{
		PreambleCount:        o.SyncPreambleCount,
		Interval:             o.SyncInterval,
		ConfirmationRequired: o.ConfirmationRequired,
	}.WithDefaults()
}

func ceilFrac(n, num, den int) int {
	return (n*num + den - 1) / den
}
