package iopoll

import "time"

// Timer is a handle to a scheduled one-shot action, returned by Timers.
// Stop reports whether the timer was successfully cancelled before firing.
type Timer interface {
	Stop() bool
}

// Timers is the timer-wheel dependency used by the A2DP suspend-scheduling
// policy: schedule a disconnect after a grace period, cancel it if a write
// recovers in time. Deferring it to an interface (rather than calling
// time.AfterFunc directly) lets tests observe and fire schedules
// deterministically instead of sleeping.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealTimers schedules with the standard library's runtime timer wheel.
type RealTimers struct{}

// AfterFunc implements Timers.
func (RealTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
