package pcmio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/btpcm/ioengine/internal/iopoll"
)

func TestConfigureRejectsZeroFormat(t *testing.T) {
	deps := testDeps(t)
	fd, peer := socketpair(t)
	defer unix.Close(peer)
	defer unix.Close(fd)
	transport := &fakeA2DPTransport{fd: fd, addr: "x"}

	dev, err := CreateA2DP(transport, 48000, 16, 2, deps)
	require.NoError(t, err)

	err = dev.Configure(Format{}, func(int, iopoll.Interest) error { return nil })
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPutBufferRejectsMoreThanLastBuffer(t *testing.T) {
	dev, _, _, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	_, frames, err := dev.GetBuffer(100)
	require.NoError(t, err)

	err = dev.PutBuffer(frames + 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFramesToPlayInSleepReportsWriteBlockOnScheduleMiss(t *testing.T) {
	dev, _, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now().Add(-time.Second)

	sleepFrames, _, _ := dev.FramesToPlayInSleep()
	require.Equal(t, int64(dev.writeBlockFrames), sleepFrames)
}

func TestFramesToPlayInSleepReportsRemainingTime(t *testing.T) {
	dev, _, _, _, clock, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.nextFlushTime = clock.Now().Add(10 * time.Millisecond)

	sleepFrames, _, _ := dev.FramesToPlayInSleep()
	require.Equal(t, int64(480), sleepFrames) // 10ms @ 48kHz
}

func TestSetVolumeForwardsToA2DPTransportOnly(t *testing.T) {
	dev, transport, _, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.activeNode = &Node{Volume: 42}
	require.NoError(t, dev.SetVolume())
	require.Equal(t, 42, transport.volume)
}

func TestIsFreeRunningOnlyTrueForUnstartedHFPOutput(t *testing.T) {
	a2dpDev, _, _, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(a2dpDev.fd)
	require.False(t, a2dpDev.IsFreeRunning())

	transport, _, hfpPeer := newTestHFP(t)
	defer unix.Close(hfpPeer)
	defer unix.Close(transport.fd)

	require.False(t, transport.in.IsFreeRunning())
	require.True(t, transport.out.IsFreeRunning())

	transport.out.started = true
	require.False(t, transport.out.IsFreeRunning())
}

func TestDelayFramesIncludesQueuedAndStackDelay(t *testing.T) {
	dev, _, _, _, _, peer := newTestA2DP(t)
	defer unix.Close(peer)
	defer unix.Close(dev.fd)

	dev.btStackDelayFrames = 100
	_, frames, err := dev.GetBuffer(50)
	require.NoError(t, err)
	require.NoError(t, dev.PutBuffer(frames))

	require.Equal(t, uint64(150), dev.DelayFrames())
}

func TestFlushBufferDropsOnlyHFPInput(t *testing.T) {
	transport, _, peer := newTestHFP(t)
	defer unix.Close(peer)
	defer unix.Close(transport.fd)

	transport.in.ring.CommitWrite(40)
	require.Equal(t, 40, transport.in.ring.Queued())

	transport.in.FlushBuffer()
	require.Equal(t, 0, transport.in.ring.Queued())

	// FlushBuffer on an output device is a documented no-op.
	_, frames, err := transport.out.GetBuffer(10)
	require.NoError(t, err)
	require.NoError(t, transport.out.PutBuffer(frames))
	queuedBefore := transport.out.ring.Queued()
	transport.out.FlushBuffer()
	require.Equal(t, queuedBefore, transport.out.ring.Queued())
}
