// Package pcmio is the PCM I/O device object and its scheduling core: the
// ring buffer plumbing, the A2DP write-pacing state machine, the HFP
// synchronous duplex loop, no-stream fallback, device lifecycle, and delay
// accounting described by the Bluetooth PCM audio I/O engine
// specification.
package pcmio

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/btpcm/ioengine/internal/iopoll"
	"github.com/btpcm/ioengine/internal/ringbuf"
	"github.com/btpcm/ioengine/internal/sockio"
	"github.com/btpcm/ioengine/internal/timeops"
)

// Direction is the data flow direction of a PcmDevice.
type Direction int

const (
	DirOutput Direction = iota
	DirInput
)

func (d Direction) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// Kind distinguishes the two transport families a PcmDevice can front.
type Kind int

const (
	KindA2DP Kind = iota
	KindHFP
)

func (k Kind) String() string {
	if k == KindHFP {
		return "hfp"
	}
	return "a2dp"
}

// State is the device's run state. Only NormalRun and NoStreamRun permit
// socket I/O.
type State int

const (
	StateUnconfigured State = iota
	StateNormalRun
	StateNoStreamRun
	StateClosed
)

// PcmDevice represents one Bluetooth PCM endpoint, A2DP or HFP, input or
// output. It exclusively owns its ring and its active node; the transport
// handle is shared with a separate management component and is never
// closed by the device.
type PcmDevice struct {
	Direction Direction
	Kind      Kind
	Format    Format

	ring             *ringbuf.ByteRing
	bufferSizeFrames int
	writeBlockFrames int

	nextFlushTime     timeops.Timestamp
	flushPeriod       time.Duration
	totalWrittenBytes uint64
	lastWriteTs       timeops.Timestamp

	btStackDelayFrames uint64
	minBufferLevel     int

	started     bool // HFP only
	hfpRWOffset uint64

	a2dpTransport A2DPTransport
	hfpTransport  HFPTransport

	state      State
	activeNode *Node

	poller iopoll.Poller
	timers iopoll.Timers
	clock  timeops.Clock
	events EventSink
	log    *zap.SugaredLogger

	fd             int
	pendingSuspend iopoll.Timer
	lastBufferLen  int // bytes handed out by the last GetBuffer call

	supported *supportedFormats
}

// newDevice builds the shared skeleton both factory constructors fill in.
func newDevice(kind Kind, dir Direction, poller iopoll.Poller, timers iopoll.Timers, clock timeops.Clock, events EventSink, log *zap.SugaredLogger) *PcmDevice {
	if events == nil {
		events = NoopEventSink{}
	}
	return &PcmDevice{
		Kind:      kind,
		Direction: dir,
		poller:    poller,
		timers:    timers,
		clock:     clock,
		events:    events,
		log:       log,
		state:     StateUnconfigured,
		fd:        -1,
	}
}

// Configure fixes the format, allocates the ring, and registers the
// device's socket with the poll facility. cb is the callback to register:
// the device's own flush trigger for A2DP, or the shared duplex callback
// for HFP.
func (d *PcmDevice) Configure(format Format, cb iopoll.Callback) error {
	if format.IsZero() {
		return fmt.Errorf("configure %s %s device: %w", d.Kind, d.Direction, ErrInvalidArgument)
	}
	d.Format = format

	frameBytes := format.FrameBytes()

	var ringCapacityBytes int
	switch d.Kind {
	case KindA2DP:
		d.writeBlockFrames = format.SampleRateHz * PCMBlockMS / 1000
		if d.writeBlockFrames <= 0 {
			return fmt.Errorf("configure a2dp device: %w", ErrInvalidArgument)
		}
		d.bufferSizeFrames = (PCMBufMaxFrames / d.writeBlockFrames) * d.writeBlockFrames
		ringCapacityBytes = d.bufferSizeFrames * frameBytes
	case KindHFP:
		d.writeBlockFrames = 0
		ringCapacityBytes = HFPRingCapacity
		d.bufferSizeFrames = ringCapacityBytes / frameBytes
	}

	ring, err := ringbuf.New(ringCapacityBytes)
	if err != nil {
		return fmt.Errorf("configure %s device: %w: %v", d.Kind, ErrOutOfMemory, err)
	}
	d.ring = ring

	d.nextFlushTime = timeops.Zero
	d.flushPeriod = timeops.FramesToDuration(int64(d.writeBlockFrames), format.SampleRateHz)
	d.totalWrittenBytes = 0
	d.lastWriteTs = timeops.Zero
	d.btStackDelayFrames = 0
	d.minBufferLevel = 0
	d.hfpRWOffset = 0

	var fd int
	var startErr error
	var interest iopoll.Interest
	switch d.Kind {
	case KindA2DP:
		fd = d.a2dpTransport.FD()
		startErr = d.a2dpTransport.Start(format)
		interest = iopoll.InterestWrite
	case KindHFP:
		fd = d.hfpTransport.FD()
		startErr = d.hfpTransport.Start(func(revents int) error { return cb(fd, iopoll.Interest(revents)) }, directionToHFP(d.Direction))
		interest = iopoll.InterestRead | iopoll.InterestWrite
	}
	if startErr != nil {
		return fmt.Errorf("configure %s %s device: %w: %v", d.Kind, d.Direction, ErrTransport, startErr)
	}
	if err := sockio.SetNonblock(fd); err != nil {
		return fmt.Errorf("configure %s %s device: %w: %v", d.Kind, d.Direction, ErrTransport, err)
	}
	d.fd = fd

	if err := d.poller.AddCallback(fd, interest, cb); err != nil {
		return fmt.Errorf("configure %s %s device: %w: %v", d.Kind, d.Direction, ErrTransport, err)
	}

	d.state = StateNormalRun
	return nil
}

func directionToHFP(dir Direction) HFPDirection {
	if dir == DirInput {
		return HFPInput
	}
	return HFPOutput
}

// Start is the A2DP-only operation that arms the flush schedule and
// requests the transport's periodic delay-sync reports. It is a no-op for
// HFP devices.
func (d *PcmDevice) Start() error {
	if d.Kind != KindA2DP {
		return nil
	}
	d.nextFlushTime = d.clock.Now()
	if err := d.a2dpTransport.DelaySync(InitDelaySync, DelaySyncPeriod); err != nil {
		return fmt.Errorf("start a2dp device: %w: %v", ErrTransport, err)
	}
	return nil
}

// Close deregisters the socket callback, cancels any scheduled suspend,
// stops the transport, and frees the ring.
func (d *PcmDevice) Close() error {
	if d.fd >= 0 {
		_ = d.poller.RemoveCallback(d.fd)
	}
	d.cancelSuspend()

	var stopErr error
	switch d.Kind {
	case KindA2DP:
		if d.a2dpTransport != nil {
			stopErr = d.a2dpTransport.Stop()
		}
	case KindHFP:
		if d.hfpTransport != nil {
			stopErr = d.hfpTransport.Stop(directionToHFP(d.Direction))
		}
	}

	d.ring = nil
	d.fd = -1
	d.state = StateClosed

	if stopErr != nil {
		return fmt.Errorf("close %s %s device: %w: %v", d.Kind, d.Direction, ErrTransport, stopErr)
	}
	return nil
}

// GetBuffer exposes a contiguous slice of the ring: writable for an
// output device, readable for an input device, of at most
// requestedFrames, capped by contiguous availability. It returns the
// slice and the frame count it actually covers.
func (d *PcmDevice) GetBuffer(requestedFrames int) ([]byte, int, error) {
	frameBytes := d.Format.FrameBytes()
	wantBytes := requestedFrames * frameBytes

	var slice []byte
	if d.Direction == DirOutput {
		slice = d.ring.WritableSlice()
	} else {
		slice = d.ring.ReadableSlice()
	}
	if len(slice) > wantBytes {
		slice = slice[:wantBytes]
	}
	d.lastBufferLen = len(slice)
	return slice, len(slice) / frameBytes, nil
}

// PutBuffer commits frames into (output) or out of (input) the ring. For
// an output A2DP device it drives a flush attempt; for HFP it does
// nothing further, the shared duplex callback drains the ring on its own
// schedule.
func (d *PcmDevice) PutBuffer(frames int) error {
	frameBytes := d.Format.FrameBytes()
	n := frames * frameBytes
	if n > d.lastBufferLen {
		return fmt.Errorf("put_buffer %s %s device: %d bytes exceeds last buffer of %d: %w", d.Kind, d.Direction, n, d.lastBufferLen, ErrInvalidArgument)
	}
	d.lastBufferLen = 0

	if d.Direction == DirInput {
		d.ring.CommitRead(n)
		return nil
	}

	d.ring.CommitWrite(n)
	if d.Kind == KindA2DP {
		return d.flushA2DP()
	}
	return nil
}

// FlushBuffer is a no-op for A2DP and for HFP output. For an HFP input
// device it drops all queued input frames, used when the server wants to
// discard stale capture.
func (d *PcmDevice) FlushBuffer() {
	if d.Kind == KindHFP && d.Direction == DirInput {
		d.ring.Reset()
	}
}

// FramesQueued returns the ring's queued byte count in frames, together
// with the current time.
func (d *PcmDevice) FramesQueued() (int, timeops.Timestamp) {
	return d.ring.Queued() / d.Format.FrameBytes(), d.clock.Now()
}

// DelayFrames returns the queued frame count plus the remote stack's
// reported delay in frames.
func (d *PcmDevice) DelayFrames() uint64 {
	queued, _ := d.FramesQueued()
	total := uint64(queued) + d.btStackDelayFrames
	return total
}

// OutputUnderrun is a no-op: the device reports no local underrun because
// the canonical buffer is the socket peer's.
func (d *PcmDevice) OutputUnderrun() {}

// NoStream switches the device's no-stream fallback on or off: the mode
// in which the server has no active producer/consumer but the device
// must still exchange data with the peer correctly.
func (d *PcmDevice) NoStream(enable bool) error {
	switch d.Kind {
	case KindA2DP:
		return d.noStreamA2DP(enable)
	case KindHFP:
		d.noStreamHFP(enable)
		return nil
	}
	return nil
}

// IsFreeRunning reports, for an HFP output device, whether packets
// continue to flow without the server's scheduling. Any other device
// (including a non-output HFP device, matching the original source's
// behavior) reports false.
func (d *PcmDevice) IsFreeRunning() bool {
	if d.Kind == KindHFP && d.Direction == DirOutput {
		return !d.started
	}
	return false
}

// FramesToPlayInSleep is the A2DP-only scheduling hint: how many frames'
// worth of time remain until the next scheduled flush. A negative
// schedule miss is reported as writeBlockFrames to avoid busy-waking.
func (d *PcmDevice) FramesToPlayInSleep() (sleepFrames int64, hwLevel int, ts timeops.Timestamp) {
	now := d.clock.Now()
	remain := d.nextFlushTime.Sub(now)
	sleepFrames = timeops.DurationToFrames(remain, d.Format.SampleRateHz)
	if sleepFrames < 0 {
		sleepFrames = int64(d.writeBlockFrames)
	}
	hwLevel = d.ring.Queued() / d.Format.FrameBytes()
	return sleepFrames, hwLevel, now
}

// SetVolume forwards the active node's volume to the A2DP transport; it
// is a no-op for HFP, which has no gain control in scope.
func (d *PcmDevice) SetVolume() error {
	if d.Kind != KindA2DP || d.activeNode == nil {
		return nil
	}
	if err := d.a2dpTransport.SetVolume(d.activeNode.Volume); err != nil {
		return fmt.Errorf("set_volume %s device: %w: %v", d.Kind, ErrTransport, err)
	}
	return nil
}

// ActiveNode returns the device's attached node.
func (d *PcmDevice) ActiveNode() *Node {
	return d.activeNode
}

// State reports the device's current run state.
func (d *PcmDevice) State() State {
	return d.state
}

// FD returns the device's socket descriptor, or -1 if unconfigured.
func (d *PcmDevice) FD() int {
	return d.fd
}
