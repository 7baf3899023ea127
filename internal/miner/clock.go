package miner

import "time"

// Clock supplies the generation timestamp of a rule set. It is read once per
// Mine call.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system time in UTC.
type WallClock struct{}

// Now returns the current UTC time without a monotonic reading, so the value
// survives a JSON round-trip unchanged.
func (WallClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}
