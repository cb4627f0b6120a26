package pcmio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/btpcm/ioengine/internal/iopoll"
)

func TestConfigureA2DPSizesRingToWholeWriteBlocks(t *testing.T) {
	dev, _, _, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	// 48kHz, 20ms blocks -> 960 frames/block; 16384 / 960 = 17 with
	// remainder, so the ring is sized to 17*960 = 16320 frames.
	require.Equal(t, 960, dev.writeBlockFrames)
	require.Equal(t, 16320, dev.bufferSizeFrames)
	require.Equal(t, 16320*4, dev.ring.Capacity())
}

func TestFlushDoesNothingBeforeScheduledTime(t *testing.T) {
	dev, _, poller, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now().Add(time.Hour)

	slice, frames, err := dev.GetBuffer(960)
	require.NoError(t, err)
	require.Equal(t, 960, frames)
	require.NoError(t, dev.PutBuffer(len(slice) / dev.Format.FrameBytes()))

	require.Equal(t, 960*4, dev.ring.Queued())
	require.Equal(t, iopoll.TriggerNone, poller.Trigger(dev.fd))
}

func TestFlushAtDueTimeSendsOneBlockAndAdvancesSchedule(t *testing.T) {
	dev, _, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now()
	before := dev.nextFlushTime

	_, frames, err := dev.GetBuffer(960)
	require.NoError(t, err)
	require.NoError(t, dev.PutBuffer(frames))

	require.Equal(t, 0, dev.ring.Queued())
	require.Equal(t, before.Add(20*time.Millisecond), dev.nextFlushTime)
}

func TestOverrunArmsWakeupExactlyOnce(t *testing.T) {
	dev, _, poller, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now().Add(time.Hour)

	// Fill the ring to capacity one block at a time; the overrun path
	// should only fire (and only arm the wakeup trigger) once the ring
	// is completely full.
	blocks := dev.bufferSizeFrames / dev.writeBlockFrames
	for i := 0; i < blocks; i++ {
		_, frames, err := dev.GetBuffer(dev.writeBlockFrames)
		require.NoError(t, err)
		require.NoError(t, dev.PutBuffer(frames))
	}

	require.Equal(t, dev.ring.Capacity(), dev.ring.Queued())
	require.Equal(t, 1, sink(dev).overruns)
	require.Equal(t, iopoll.TriggerWakeup, poller.Trigger(dev.fd))
	require.Equal(t, 1, poller.WakeupCount[dev.fd])
}

func TestWouldBlockSchedulesSuspendOnceAndCancelsOnRecovery(t *testing.T) {
	dev, _, poller, timers, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now()
	fillSocketBuffer(dev.fd)

	_, frames, err := dev.GetBuffer(960)
	require.NoError(t, err)
	require.NoError(t, dev.PutBuffer(frames))

	require.Equal(t, 1, timers.Pending())
	require.Equal(t, []time.Duration{5 * time.Second}, sink(dev).suspendScheduled)
	require.Equal(t, iopoll.TriggerWakeup, poller.Trigger(dev.fd))

	// A second would-block flush attempt must not schedule a duplicate
	// suspend.
	dev.nextFlushTime = clock.Now()
	_, frames, err = dev.GetBuffer(960)
	require.NoError(t, err)
	require.NoError(t, dev.PutBuffer(frames))
	require.Equal(t, 1, timers.Pending())

	// Draining the peer frees socket buffer space; the next flush
	// succeeds and must cancel the pending suspend.
	drain(peer)
	dev.nextFlushTime = clock.Now()
	require.NoError(t, dev.flushA2DP())

	require.Equal(t, 0, timers.Pending())
	require.Equal(t, 1, sink(dev).suspendCancelled)
}

func TestSuspendFiresTransportStopAfterGracePeriod(t *testing.T) {
	dev, transport, _, timers, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now()
	fillSocketBuffer(dev.fd)

	_, frames, err := dev.GetBuffer(960)
	require.NoError(t, err)
	require.NoError(t, dev.PutBuffer(frames))
	require.Equal(t, 1, timers.Pending())

	timers.FireAll(5 * time.Second)
	require.Equal(t, 1, transport.stopCalls)
	require.Equal(t, 0, timers.Pending())
}

func TestNoStreamEnterToppsUpTwoBlocksBeforeFlushing(t *testing.T) {
	dev, _, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	// Keep the flush itself from running so the top-up amount can be
	// observed in isolation.
	dev.nextFlushTime = clock.Now().Add(time.Hour)

	require.NoError(t, dev.NoStream(true))
	require.Equal(t, 2*960*4, dev.ring.Queued())
}

func TestNoStreamLeaveToppsUpOneBlock(t *testing.T) {
	dev, _, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now().Add(time.Hour)

	require.NoError(t, dev.NoStream(false))
	require.Equal(t, 960*4, dev.ring.Queued())
}

func TestStartArmsFirstFlushAndRequestsDelaySync(t *testing.T) {
	dev, transport, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	require.NoError(t, dev.Start())
	require.Equal(t, clock.Now(), dev.nextFlushTime)
	require.Equal(t, []time.Duration{InitDelaySync, DelaySyncPeriod}, transport.delaySyncArgs)
}

func TestCloseDeregistersAndStopsTransport(t *testing.T) {
	dev, transport, poller, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	fd := dev.fd
	defer unix.Close(fd)

	require.NoError(t, dev.Close())
	require.False(t, poller.Registered(fd))
	require.Equal(t, 1, transport.stopCalls)
	require.Equal(t, StateClosed, dev.State())
}

func sink(dev *PcmDevice) *recordingSink {
	return dev.events.(*recordingSink)
}
