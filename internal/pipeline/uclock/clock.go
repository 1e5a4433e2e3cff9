// Package uclock provides the fixed-unit time source stages use for "sys"
// timestamps and for the trick-play stage's wall-clock anchoring.
package uclock

import "time"

// Freq is the fixed tick rate every Clock reports in: 27MHz, matching the
// unit every other timestamp in this module (uref.TimeSet, udict's clock
// attributes) is expressed in.
const Freq = 27_000_000

// Clock is a source of monotonically non-decreasing 27MHz timestamps.
type Clock interface {
	Now() uint64
}

// Monotonic reports elapsed time since the Clock was constructed, in
// 27MHz ticks, using the runtime monotonic clock (time.Since never
// observes wall-clock adjustments).
type Monotonic struct {
	start time.Time
}

// NewMonotonic anchors a Monotonic clock at start; Now() reports the
// ticks elapsed since then (a small positive value, not zero, when start
// is the current instant).
func NewMonotonic(start time.Time) *Monotonic {
	return &Monotonic{start: start}
}

func (m *Monotonic) Now() uint64 {
	return uint64(time.Since(m.start).Seconds() * Freq)
}

// Wall reports wall-clock time since the Unix epoch in 27MHz ticks. Used
// where timestamps must be comparable across process restarts (e.g.
// logged for post-mortem correlation), accepting the risk of NTP jumps
// that Monotonic avoids.
type Wall struct{}

func (Wall) Now() uint64 {
	t := time.Now()
	return uint64(t.Unix())*Freq + uint64(t.Nanosecond())*Freq/uint64(time.Second)
}

// FromDuration converts a time.Duration to 27MHz ticks.
func FromDuration(d time.Duration) uint64 {
	return uint64(d.Seconds() * Freq)
}

// ToDuration converts 27MHz ticks back to a time.Duration.
func ToDuration(ticks uint64) time.Duration {
	return time.Duration(float64(ticks) / Freq * float64(time.Second))
}
