// Package system provides the wall-clock implementation of trending.Clock.
package system

import "time"

// Clock reads the real system time in UTC. Trending days are UTC days, so
// every consumer sees the same day boundary regardless of host timezone.
type Clock struct{}

// New returns a system clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
