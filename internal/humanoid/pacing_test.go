// FILE: ./internal/humanoid/pacing_test.go
package humanoid

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is advanced by hand so schedules can be checked without sleeping.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBaseDelayMs(t *testing.T) {
	assert.InDelta(t, 100.0, BaseDelayMs(120), 1e-9)
	assert.InDelta(t, 200.0, BaseDelayMs(60), 1e-9)
}

func TestDriftDelay(t *testing.T) {
	t.Run("on schedule", func(t *testing.T) {
		assert.InDelta(t, 100.0, DriftDelay(10, 100, time.Second, 120), 1e-9)
	})
	t.Run("late speeds up", func(t *testing.T) {
		// 90ms late with 90 characters left.
		assert.InDelta(t, 99.0, DriftDelay(10, 100, 1090*time.Millisecond, 120), 1e-9)
	})
	t.Run("early slows down", func(t *testing.T) {
		assert.InDelta(t, 101.0, DriftDelay(10, 100, 910*time.Millisecond, 120), 1e-9)
	})
	t.Run("correction bounded to half base", func(t *testing.T) {
		assert.InDelta(t, 50.0, DriftDelay(99, 100, time.Minute, 120), 1e-9)
		assert.InDelta(t, 150.0, DriftDelay(99, 100, 0, 120), 1e-9)
	})
	t.Run("floor", func(t *testing.T) {
		// 300 WPM gives 40ms; a fully late schedule still never drops under the floor.
		assert.GreaterOrEqual(t, DriftDelay(1, 2, time.Hour, 1500), MinDelayMs)
	})
	t.Run("past the end", func(t *testing.T) {
		assert.InDelta(t, 100.0, DriftDelay(100, 100, 10*time.Second, 120), 1e-9)
	})
}

func TestJitterStrength(t *testing.T) {
	assert.InDelta(t, 0.18, JitterStrength(18, 80), 1e-9)
	assert.InDelta(t, 0.05, JitterStrength(0, 80), 1e-9)
	assert.InDelta(t, 0.45, JitterStrength(90, 80), 1e-9)
	assert.InDelta(t, 0.08, JitterStrength(30, 140), 1e-9)
	assert.InDelta(t, 0.05, JitterStrength(5, 200), 1e-9)
}

func TestApplyJitter(t *testing.T) {
	assert.InDelta(t, 118.0, ApplyJitter(100, 0.18, 1), 1e-9)
	assert.InDelta(t, 82.0, ApplyJitter(100, 0.18, -1), 1e-9)
	assert.InDelta(t, MinDelayMs, ApplyJitter(6, 0.45, -1), 1e-9)
}

// -- Closed-loop convergence --

func runSchedule(n int, wpm float64, perturb func(i int, clock *fakeClock), jitter func(float64) float64) time.Duration {
	clock := newFakeClock()
	start := clock.Now()
	p := NewPacer(n, clock.Now)
	for i := 0; i < n; i++ {
		d := p.NextDelay(i, wpm)
		if jitter != nil {
			d = jitter(d)
		}
		clock.Advance(msToDuration(d))
		if perturb != nil {
			perturb(i, clock)
		}
	}
	return clock.Now().Sub(start)
}

func TestPacer_ConvergesAfterPerturbation(t *testing.T) {
	const n = 1000
	want := time.Duration(n) * 100 * time.Millisecond

	t.Run("late burst mid stream", func(t *testing.T) {
		got := runSchedule(n, 120, func(i int, c *fakeClock) {
			if i == n/2 {
				c.Advance(500 * time.Millisecond)
			}
		}, nil)
		assert.InDelta(t, float64(want), float64(got), float64(want)*0.02)
	})

	t.Run("pause is absorbed", func(t *testing.T) {
		got := runSchedule(n, 120, func(i int, c *fakeClock) {
			if i == 100 {
				c.Advance(2 * time.Second)
			}
		}, nil)
		assert.InDelta(t, float64(want), float64(got), float64(want)*0.02)
	})

	t.Run("jitter averages out", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		got := runSchedule(n, 120, nil, func(d float64) float64 {
			return ApplyJitter(d, JitterStrength(18, 120), rng.Float64()*2-1)
		})
		assert.InDelta(t, float64(want), float64(got), float64(want)*0.02)
	})
}

func TestPacer_ReanchorsOnSpeedChange(t *testing.T) {
	clock := newFakeClock()
	p := NewPacer(200, clock.Now)
	for i := 0; i < 100; i++ {
		clock.Advance(msToDuration(p.NextDelay(i, 60)))
	}
	// Doubling the speed starts a fresh schedule instead of chasing the old one.
	assert.InDelta(t, 100.0, p.NextDelay(100, 120), 1e-9)
}
