// Package clock provides an injectable wall-clock source so that services
// and the projection worker can be tested with a frozen time.
package clock

import "time"

// Clock yields the current time. All timestamps written by the system
// (created_at, updated_at, removed_at, processed_at) come from a Clock,
// never from time.Now directly.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by the OS wall clock, in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock frozen at a single instant, for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant }
