//go:build linux

package timeops

import "golang.org/x/sys/unix"

// RealClock reads CLOCK_MONOTONIC_RAW through golang.org/x/sys/unix, the
// same clock source the remote Bluetooth stack's delay reports are
// anchored against.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() Timestamp {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		// CLOCK_MONOTONIC_RAW is always available on Linux; a failure here
		// means the process environment is broken beyond recovery for a
		// pacing-sensitive audio engine.
		panic("timeops: clock_gettime(CLOCK_MONOTONIC_RAW) failed: " + err.Error())
	}
	return Timestamp(ts.Sec*int64(1e9) + int64(ts.Nsec))
}
