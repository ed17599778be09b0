package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tightbeam/tightbeam/frame"
	"github.com/tightbeam/tightbeam/syncctl"
	"github.com/tightbeam/tightbeam/tberr"
)

func TestPrepareBroadcastAndReceiveRoundTrip(t *testing.T) {
	payload := []byte("Tightbeam carries data across an air gap, one QR frame at a time.")

	pkg, err := PrepareBroadcast(payload, Options{Seed: 123})
	require.NoError(t, err)
	require.NotEmpty(t, pkg.Frames)
	require.Equal(t, len(payload), pkg.Metadata.OrigLen)

	rx := NewReceiver("test-session", syncctl.Config{})
	var status Status
	for _, f := range pkg.Frames {
		status, err = rx.IngestFrame(f)
		require.NoError(t, err)
		if status.DecodeComplete {
			break
		}
	}

	require.True(t, status.DecodeComplete)
	require.False(t, status.Corrupted)
	require.Equal(t, payload, status.Recovered)
	require.Equal(t, string(payload), status.RecoveredText)
	require.Equal(t, syncctl.StateLocked, status.SyncState)
}

func TestPrepareBroadcastEmptyPayload(t *testing.T) {
	pkg, err := PrepareBroadcast(nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, pkg.Metadata.K)
	require.Equal(t, 0, pkg.Metadata.OrigLen)

	rx := NewReceiver("empty-session", syncctl.Config{})
	var status Status
	for _, f := range pkg.Frames {
		status, err = rx.IngestFrame(f)
		require.NoError(t, err)
	}
	require.True(t, status.DecodeComplete)
	require.Empty(t, status.Recovered)
}

func TestReceiverAddSymbolBeforeMetadataIsNotLocked(t *testing.T) {
	rx := NewReceiver("no-meta", syncctl.Config{})
	_, err := rx.AddSymbol(0, []int{0}, "deadbeef")
	require.ErrorIs(t, err, tberr.ErrNotLocked)
}

func TestReceiverResetRefusesInvalidMetadata(t *testing.T) {
	rx := NewReceiver("bad-reset", syncctl.Config{})
	err := rx.Reset(64, 0, 5, "sha256", "deadbeef")
	require.ErrorIs(t, err, tberr.ErrInvalidMetadata)
}

func TestReceiverResetInstallsFreshDecoder(t *testing.T) {
	rx := NewReceiver("reset-session", syncctl.Config{})
	err := rx.Reset(8, 2, 16, "", "")
	require.NoError(t, err)

	status := rx.Status()
	require.Equal(t, syncctl.StateLocked, status.SyncState)
	require.Equal(t, 0.0, status.Coverage)
}

func TestReceiverIgnoresDuplicateFrameSequence(t *testing.T) {
	payload := []byte("duplicate frame sequence handling")
	pkg, err := PrepareBroadcast(payload, Options{Seed: 7})
	require.NoError(t, err)

	rx := NewReceiver("dup-session", syncctl.Config{})
	var first Status
	for _, f := range pkg.Frames {
		first, err = rx.IngestFrame(f)
		require.NoError(t, err)
	}
	require.True(t, first.DecodeComplete)

	var symbolFrame string
	for _, f := range pkg.Frames {
		if strings.HasPrefix(f, frame.TagSymbol) {
			symbolFrame = f
			break
		}
	}
	require.NotEmpty(t, symbolFrame)

	// Resubmit an already-seen symbol frame verbatim; its sequence number
	// was already recorded, so it must be rejected as a frame-level
	// duplicate rather than disturbing the completed decode.
	status, err := rx.IngestFrame(symbolFrame)
	require.NoError(t, err)
	require.True(t, status.Redundant)
	require.Equal(t, tberr.RejectDuplicate, status.Reject)
	require.True(t, status.DecodeComplete)
}

func TestReceiverSurvivesUnknownGarbageFrame(t *testing.T) {
	rx := NewReceiver("garbage-session", syncctl.Config{})
	_, err := rx.IngestFrame("not a real frame")
	require.Error(t, err)
	require.Equal(t, syncctl.StateIdle, rx.Status().SyncState)
}

func TestRegistryCreateGetDelete(t *testing.T) {
	reg := NewRegistry(0)
	r := reg.Create(syncctl.Config{})
	require.NotEmpty(t, r.ID())
	require.Equal(t, 1, reg.Len())

	got := reg.Get(r.ID())
	require.Same(t, r, got)

	reg.Delete(r.ID())
	require.Equal(t, 0, reg.Len())
	require.Nil(t, reg.Get(r.ID()))
}
