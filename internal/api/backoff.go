package api

import (
	"math/rand"
	"time"
)

// Delay returns the wait before retry number attempt: exponential growth
// from base, capped at max, widened by up to 30% random jitter, and capped
// again so the result never exceeds max.
func Delay(attempt int, base, max time.Duration) time.Duration {
	return delay(attempt, base, max, rand.Float64())
}

// delay is the deterministic core with jitter in [0, 1).
func delay(attempt int, base, max time.Duration, jitter float64) time.Duration {
	if base <= 0 || max <= 0 {
		return 0
	}

	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}

	d += time.Duration(jitter * 0.3 * float64(d))
	if d > max {
		d = max
	}
	return d
}
