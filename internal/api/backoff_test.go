package api

import (
	"testing"
	"time"
)

// TestDelayExponentialGrowth verifies jitter-free delays double per
// attempt until the cap.
func TestDelayExponentialGrowth(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	want := base
	for attempt := 0; attempt < 6; attempt++ {
		got := delay(attempt, base, max, 0)
		if got != want {
			t.Fatalf("delay(%d) = %v, want %v", attempt, got, want)
		}
		want *= 2
	}
}

// TestDelayCapsAtMax verifies neither growth nor jitter can exceed max.
func TestDelayCapsAtMax(t *testing.T) {
	base := 500 * time.Millisecond
	max := 2 * time.Second

	for attempt := 0; attempt < 20; attempt++ {
		for _, jitter := range []float64{0, 0.5, 0.999} {
			got := delay(attempt, base, max, jitter)
			if got > max {
				t.Fatalf("delay(%d, jitter=%v) = %v exceeds max %v", attempt, jitter, got, max)
			}
			if got < 0 {
				t.Fatalf("delay(%d, jitter=%v) = %v is negative", attempt, jitter, got)
			}
		}
	}
}

// TestDelayJitterBounds verifies jitter widens the delay by at most 30%.
func TestDelayJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Minute

	for attempt := 0; attempt < 5; attempt++ {
		lo := delay(attempt, base, max, 0)
		hi := delay(attempt, base, max, 0.999)
		if hi < lo {
			t.Fatalf("delay(%d) with jitter %v < without %v", attempt, hi, lo)
		}
		limit := lo + time.Duration(0.3*float64(lo))
		if hi > limit {
			t.Fatalf("delay(%d) = %v exceeds 30%% jitter bound %v", attempt, hi, limit)
		}
	}
}

// TestDelayMonotoneWithoutJitter verifies non-decreasing growth in the
// deterministic core.
func TestDelayMonotoneWithoutJitter(t *testing.T) {
	base := 50 * time.Millisecond
	max := 5 * time.Second

	prev := time.Duration(-1)
	for attempt := 0; attempt < 12; attempt++ {
		got := delay(attempt, base, max, 0)
		if got < prev {
			t.Fatalf("delay(%d) = %v decreased from %v", attempt, got, prev)
		}
		prev = got
	}
}

// TestDelayInvalidInputs verifies degenerate base or max never produces a
// negative or unbounded wait.
func TestDelayInvalidInputs(t *testing.T) {
	if got := delay(3, 0, time.Second, 0.5); got != 0 {
		t.Fatalf("delay with zero base = %v, want 0", got)
	}
	if got := delay(3, time.Second, 0, 0.5); got != 0 {
		t.Fatalf("delay with zero max = %v, want 0", got)
	}
	if got := Delay(0, 100*time.Millisecond, time.Second); got < 100*time.Millisecond || got > time.Second {
		t.Fatalf("Delay(0) = %v out of [100ms, 1s]", got)
	}
}
