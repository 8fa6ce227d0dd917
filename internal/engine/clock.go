package engine

import "time"

// Clock supplies wall time for run timestamps and durations.
// Tests substitute a deterministic clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
