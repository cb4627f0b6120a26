package pcmio

import "time"

// Constants from the spec's External Interfaces section.
const (
	// PCMBufMaxFrames bounds how many frames an A2DP ring can hold.
	PCMBufMaxFrames = 16384
	// PCMBlockMS is the A2DP write block duration, 20ms.
	PCMBlockMS = 20
	// HFPPacketSize is one 10ms @ 8kHz narrowband SCO packet, in bytes.
	HFPPacketSize = 160
	// HFPRingCapacity is the fixed byte capacity of an HFP device's ring.
	HFPRingCapacity = 28800

	// InitDelaySync is the delay before the first delay_sync request.
	InitDelaySync = 500 * time.Millisecond
	// DelaySyncPeriod is the period between delay_sync requests.
	DelaySyncPeriod = 10000 * time.Millisecond
	// DefaultBTStackDelay is the bootstrap delay assumed before the remote
	// stack has reported a valid data position.
	DefaultBTStackDelay = 200 * time.Millisecond

	// ThrottleLogThreshold is the schedule-miss duration that triggers a
	// throttle log line.
	ThrottleLogThreshold = 10 * time.Millisecond
	// ThrottleEventThreshold is the schedule-miss duration that triggers a
	// severe throttle event.
	ThrottleEventThreshold = 2 * time.Second
	// EAGAINSuspendGrace is how long a run of would-block writes is
	// tolerated before the A2DP transport is suspended.
	EAGAINSuspendGrace = 5 * time.Second

	// bytesPerSample is fixed: signed 16-bit little-endian.
	bytesPerSample = 2
)
