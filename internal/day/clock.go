package day

import "time"

// Clock supplies wall time. Production code uses System; tests use a fixed
// clock from internal/testutil.
type Clock interface {
	Now() time.Time
}

// System is the process wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Today returns the UTC calendar day according to c.
//
// Call this once per request and pass the result along. Comparing two
// separate readings of a live clock can disagree across midnight.
func Today(c Clock) Day {
	return Of(c.Now())
}
