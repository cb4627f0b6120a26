package pcmio

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/btpcm/ioengine/internal/iopoll"
	"github.com/btpcm/ioengine/internal/sockio"
	"github.com/btpcm/ioengine/internal/timeops"
)

// flushA2DP is the A2DP pacing state machine driven by put_buffer, the
// socket writability callback, and the no-stream fallback. It implements
// the do-flush loop: gate on state, early-return when not yet due,
// attempt a bounded non-blocking write, interpret the result, and loop
// while more than one write block remains queued.
func (d *PcmDevice) flushA2DP() error {
	frameBytes := d.Format.FrameBytes()
	blockBytes := d.writeBlockFrames * frameBytes

	for {
		if d.state != StateNormalRun && d.state != StateNoStreamRun {
			return nil
		}

		now := d.clock.Now().Add(timeops.WakeFuzz)
		if !now.After(d.nextFlushTime) {
			if d.ring.Queued() == d.ring.Capacity() {
				_ = d.poller.ConfigCallback(d.fd, iopoll.TriggerWakeup)
				d.events.Overrun(d)
				d.log.Warnw("a2dp ring full ahead of schedule, arming wakeup",
					zap.String("peer", d.displayName()))
			}
			return nil
		}

		miss := now.Sub(d.nextFlushTime)
		if miss > ThrottleLogThreshold {
			severe := miss > ThrottleEventThreshold
			d.events.ScheduleMiss(d, miss, severe)
			if severe {
				d.log.Errorw("a2dp flush severely late", zap.Duration("miss", miss), zap.String("peer", d.displayName()))
			} else {
				d.log.Warnw("a2dp flush late", zap.Duration("miss", miss), zap.String("peer", d.displayName()))
			}
		}

		var n int
		var writeErr error
		if d.ring.Queued() >= blockBytes {
			want := blockBytes
			readable := d.ring.ReadableSlice()
			if len(readable) < want {
				want = len(readable)
			}
			n, writeErr = sockio.Send(d.fd, readable[:want])
		}

		if writeErr != nil {
			if errors.Is(writeErr, sockio.ErrWouldBlock) {
				d.scheduleSuspend(EAGAINSuspendGrace)
				_ = d.poller.ConfigCallback(d.fd, iopoll.TriggerWakeup)
				return nil
			}
			d.cancelSuspend()
			d.scheduleSuspend(0)
			_ = d.poller.ConfigCallback(d.fd, iopoll.TriggerNone)
			return fmt.Errorf("a2dp flush to %s: %w: %v", d.displayName(), ErrTransport, writeErr)
		}

		if n > 0 {
			writtenFrames := int64(n / frameBytes)
			d.nextFlushTime = d.nextFlushTime.Add(timeops.FramesToDuration(writtenFrames, d.Format.SampleRateHz))
			d.ring.CommitRead(n)
			d.totalWrittenBytes += uint64(n)
			d.lastWriteTs = now
		}

		_ = d.poller.ConfigCallback(d.fd, iopoll.TriggerNone)
		d.cancelSuspend()

		if n > 0 && d.ring.Queued() > blockBytes {
			continue
		}
		return nil
	}
}

// scheduleSuspend arms a one-shot back-pressure suspend after the given
// grace period, unless one is already pending.
func (d *PcmDevice) scheduleSuspend(after time.Duration) {
	if d.pendingSuspend != nil {
		return
	}
	d.pendingSuspend = d.timers.AfterFunc(after, d.suspendNow)
	d.events.SuspendScheduled(d, after)
}

// cancelSuspend clears a pending suspend timer, if any.
func (d *PcmDevice) cancelSuspend() {
	if d.pendingSuspend == nil {
		return
	}
	d.pendingSuspend.Stop()
	d.pendingSuspend = nil
	d.events.SuspendCancelled(d)
}

// suspendNow requests the A2DP transport disconnect after chronic
// back-pressure beyond the suspend grace period, or immediately after a
// non-retriable socket error.
func (d *PcmDevice) suspendNow() {
	d.pendingSuspend = nil
	if d.a2dpTransport == nil {
		return
	}
	if err := d.a2dpTransport.Stop(); err != nil {
		d.log.Warnw("a2dp suspend: transport stop failed", zap.Error(err), zap.String("peer", d.displayName()))
	}
}

// noStreamA2DP implements the A2DP no-stream fallback: keep the socket
// drained on a fixed cadence even with no producer, so the peer's timing
// does not stall.
func (d *PcmDevice) noStreamA2DP(enable bool) error {
	frameBytes := d.Format.FrameBytes()
	if enable {
		target := 2 * d.writeBlockFrames * frameBytes
		if d.ring.Queued() < target {
			d.ring.ZeroFill(target - d.ring.Queued())
		}
		return d.flushA2DP()
	}

	target := d.writeBlockFrames * frameBytes
	if d.ring.Queued() < target {
		d.ring.ZeroFill(target - d.ring.Queued())
	}
	return nil
}

func (d *PcmDevice) displayName() string {
	if d.a2dpTransport != nil {
		return d.a2dpTransport.DisplayName()
	}
	if d.hfpTransport != nil {
		return d.hfpTransport.DisplayName()
	}
	return "unknown"
}
