// Package scheduler provides the single-threaded cooperative run loop that
// drives both the client state machine and the server gatekeeper.
//
// Every callback handed to a Scheduler runs on the loop, one at a time, in
// the order it was delivered. Blocking work (HTTP, disk) runs off the loop
// through Go and resumes on the loop.
package scheduler

import (
	"time"
)

type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())

	// AfterFunc runs fn on the loop once d has elapsed. stop reports whether
	// the call prevented fn from running.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)

	// Go runs work off the loop and then queues resume on the loop.
	Go(work func(), resume func())

	Now() time.Time
}

// Await runs work off the loop and hands its result to resume on the loop.
func Await[T any](s Scheduler, work func() (T, error), resume func(T, error)) {
	var (
		v   T
		err error
	)
	s.Go(func() {
		v, err = work()
	}, func() {
		resume(v, err)
	})
}

// Every runs fn on the loop every d until stop is called.
func Every(s Scheduler, d time.Duration, fn func()) (stop func()) {
	stopped := false
	var cancel func() bool

	var schedule func()
	schedule = func() {
		cancel = s.AfterFunc(d, func() {
			if stopped {
				return
			}
			fn()
			if !stopped {
				schedule()
			}
		})
	}
	schedule()

	return func() {
		s.Post(func() {
			stopped = true
			if cancel != nil {
				cancel()
			}
		})
	}
}
