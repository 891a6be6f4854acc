package controller

import "time"

// Clock is the time source of the scheduler. Tests replace it to drive timers
// without waiting.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending call created by [Clock.AfterFunc].
type Timer interface {
	// Stop prevents the call from firing. It reports false if the call
	// already fired or was stopped.
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
