package pcmio

import (
	"time"

	"github.com/btpcm/ioengine/internal/timeops"
)

// UpdateStackDelay recomputes the device's reported remote-stack delay
// whenever the transport publishes a fresh report: a remote delay
// duration, the total byte count the stack has consumed so far, and the
// monotonic-raw timestamp of that consumption.
func (d *PcmDevice) UpdateStackDelay(remoteDelay time.Duration, totalBytesReadByStack uint64, dataPositionTs timeops.Timestamp) {
	rate := d.Format.SampleRateHz
	frameBytes := int64(d.Format.FrameBytes())

	delay := timeops.DurationToFrames(remoteDelay, rate)

	if dataPositionTs.IsZero() {
		delay += timeops.DurationToFrames(DefaultBTStackDelay, rate)
	} else {
		bytesInFlight := int64(d.totalWrittenBytes) - int64(totalBytesReadByStack)
		framesInFlight := bytesInFlight / frameBytes

		if dataPositionTs.After(d.lastWriteTs) {
			skew := timeops.DurationToFrames(dataPositionTs.Sub(d.lastWriteTs), rate)
			delay += framesInFlight + skew
		} else {
			skew := timeops.DurationToFrames(d.lastWriteTs.Sub(dataPositionTs), rate)
			delay += framesInFlight - skew
		}
	}

	if delay < 0 {
		delay = 0
	}
	d.btStackDelayFrames = uint64(delay)
}
