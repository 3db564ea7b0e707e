// Package clockx abstracts wall-clock time and one-shot timers so
// time-dependent behavior (challenge expiry, refresh sweeps) can be driven
// deterministically in tests.
package clockx

import "time"

// Timer is a cancellable one-shot timer handle.
type Timer interface {
	// Stop cancels the timer. Reports whether the call stopped it before
	// the function ran.
	Stop() bool
}

// Clock provides the current time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
