// Package tberr defines the error kinds surfaced by the Tightbeam core,
// matching the taxonomy every package reports rejections with.
package tberr

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) at the call site
// and unwrap with errors.Is.
var (
	// ErrInvalidMetadata means block_size <= 0, k < 0, or orig_len outside
	// [0, k*block_size]; k == 0 is valid only together with orig_len == 0.
	ErrInvalidMetadata = errors.New("tightbeam: invalid metadata")

	// ErrMalformedFrame means a frame string failed to parse: bad tag,
	// unparseable integer, wrong hex length, or malformed JSON body.
	ErrMalformedFrame = errors.New("tightbeam: malformed frame")

	// ErrIndexOutOfRange means a symbol's indices include a value >= k.
	ErrIndexOutOfRange = errors.New("tightbeam: index out of range")

	// ErrNotLocked means a symbol arrived before sync lock and no
	// metadata has been installed.
	ErrNotLocked = errors.New("tightbeam: receiver not locked")

	// ErrIntegrityFailure means the decoded payload did not match the
	// checksum carried in BroadcastMetadata.
	ErrIntegrityFailure = errors.New("tightbeam: integrity check failed")
)

// RejectKind names a frame-ingestion rejection reason for metrics and
// logging. These are informational, not fatal: a rejected frame never
// aborts a session.
type RejectKind string

const (
	RejectRedundant  RejectKind = "redundant"
	RejectCorrupt    RejectKind = "corrupt"
	RejectDuplicate  RejectKind = "duplicate"
	RejectMalformed  RejectKind = "malformed"
	RejectOutOfRange RejectKind = "index_out_of_range"
	RejectNotLocked  RejectKind = "not_locked"
)
