package syncctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleEmitsPreambleThenInsertsAtInterval(t *testing.T) {
	cfg := Config{PreambleCount: 4, Interval: 3, ConfirmationRequired: 2}
	s := NewSchedule(cfg)

	preamble := s.Preamble()
	require.Len(t, preamble, 4)
	for i, ord := range preamble {
		require.Equal(t, i+1, ord.Ordinal)
		require.Equal(t, 4, ord.Total)
	}

	for i := 0; i < 2; i++ {
		insert, _ := s.Tick()
		require.False(t, insert, "should not insert before the interval elapses")
	}
	insert, ord := s.Tick()
	require.True(t, insert)
	require.Equal(t, 4, ord.Total)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	require.Equal(t, DefaultPreambleCount, cfg.PreambleCount)
	require.Equal(t, DefaultInterval, cfg.Interval)
	require.Equal(t, DefaultConfirmationRequired, cfg.ConfirmationRequired)
	require.Equal(t, DefaultWatchdog, cfg.Watchdog)
}

func TestReceiverLocksAfterConfirmationThreshold(t *testing.T) {
	cfg := Config{PreambleCount: 4, ConfirmationRequired: 3}
	r := NewReceiver(cfg)
	require.Equal(t, StateIdle, r.State())

	justLocked := r.ObserveSync(1)
	require.False(t, justLocked)
	require.Equal(t, StateAcquiring, r.State())

	r.ObserveSync(2)
	justLocked = r.ObserveSync(3)
	require.True(t, justLocked)
	require.Equal(t, StateLocked, r.State())
}

func TestReceiverLocksImmediatelyOnMetadata(t *testing.T) {
	r := NewReceiver(Config{})
	require.Equal(t, StateIdle, r.State())
	r.ObserveMetadata()
	require.Equal(t, StateLocked, r.State())
}

func TestReceiverWatchdogDemotesToAcquiring(t *testing.T) {
	cfg := Config{Watchdog: 10 * time.Millisecond}
	r := NewReceiver(cfg)
	r.ObserveMetadata()
	require.Equal(t, StateLocked, r.State())

	fakeNow := time.Now()
	r.now = func() time.Time { return fakeNow }
	r.touch()

	resynced := r.CheckWatchdog()
	require.False(t, resynced, "should not resync before the watchdog interval elapses")

	r.now = func() time.Time { return fakeNow.Add(20 * time.Millisecond) }
	resynced = r.CheckWatchdog()
	require.True(t, resynced)
	require.Equal(t, StateAcquiring, r.State())
}

func TestReceiverResetReturnsToIdle(t *testing.T) {
	r := NewReceiver(Config{})
	r.ObserveMetadata()
	require.Equal(t, StateLocked, r.State())
	r.Reset()
	require.Equal(t, StateIdle, r.State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "acquiring", StateAcquiring.String())
	require.Equal(t, "locked", StateLocked.String())
}
