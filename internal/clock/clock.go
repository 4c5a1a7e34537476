// Package clock abstracts the time source so lifecycle rules that
// compare against "now" can be tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func System() Clock { return systemClock{} }

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	Current time.Time
}

func (f *Fixed) Now() time.Time { return f.Current }

func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
