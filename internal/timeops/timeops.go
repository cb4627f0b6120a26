// Package timeops provides monotonic-raw timestamp arithmetic and
// frame/duration conversion at a sample rate, the way the audio core
// reasons about pacing.
package timeops

import "time"

// WakeFuzz is added when comparing "now" to a scheduled flush time so a
// poller that wakes a little early still gets to run its scheduled work,
// instead of skipping it and re-sleeping a full period.
const WakeFuzz = 1 * time.Millisecond

// Timestamp is a monotonic-raw instant, expressed as nanoseconds since an
// arbitrary, process-local epoch. It is only ever compared against other
// Timestamps produced by the same Clock.
type Timestamp int64

// Zero is the sentinel "no timestamp yet" value used by the delay
// estimator's bootstrap case.
const Zero Timestamp = 0

// IsZero reports whether t is the zero timestamp.
func (t Timestamp) IsZero() bool {
	return t == Zero
}

// Add returns t advanced by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d)
}

// Sub returns the duration from u to t (t - u).
func (t Timestamp) Sub(u Timestamp) time.Duration {
	return time.Duration(t - u)
}

// After reports whether t is strictly later than u.
func (t Timestamp) After(u Timestamp) bool {
	return t > u
}

// Clock is the monotonic clock dependency injected into the audio core, so
// tests can drive time deterministically.
type Clock interface {
	Now() Timestamp
}

// FramesToDuration converts a frame count at rateHz into a duration,
// rounding toward floor.
func FramesToDuration(frames int64, rateHz int) time.Duration {
	if rateHz <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(rateHz))
}

// DurationToFrames converts a duration at rateHz into a frame count,
// rounding toward floor. Negative durations floor toward negative infinity,
// matching the spec's "sleep_frames may be negative on a schedule miss"
// language.
func DurationToFrames(d time.Duration, rateHz int) int64 {
	if rateHz <= 0 {
		return 0
	}
	num := int64(d) * int64(rateHz)
	den := int64(time.Second)
	q := num / den
	if num%den != 0 && (num < 0) != (den < 0) {
		q--
	}
	return q
}
