// internal/humanoid/pacing.go
package humanoid

import (
	"math"
	"time"
)

// MinDelayMs is the floor for any scheduled per-character delay.
const MinDelayMs = 6.0

// Above this rate jitter is capped so the rhythm stays controllable.
const (
	fastWPM           = 140
	fastJitterCap     = 0.08
	minJitterStrength = 0.05
	maxJitterStrength = 0.45
)

// BaseDelayMs is the nominal per-character interval for wpm, using the
// five-characters-per-word convention.
func BaseDelayMs(wpm float64) float64 {
	return 60000 / (math.Max(wpm, 1) * 5)
}

// DriftDelay computes the delay before character i of n so the run converges
// on i*base elapsed time. Lateness or earliness is spread evenly over the
// remaining characters, bounded to half the base interval per character.
func DriftDelay(i, n int, elapsed time.Duration, wpm float64) float64 {
	base := BaseDelayMs(wpm)
	ideal := float64(i) * base
	actual := float64(elapsed) / float64(time.Millisecond)
	drift := actual - ideal

	remaining := n - i
	if remaining < 1 {
		remaining = 1
	}
	correction := clampFloat(-drift/float64(remaining), -0.5*base, 0.5*base)
	return math.Max(base+correction, MinDelayMs)
}

// JitterStrength turns the jitter percentage knob into a multiplicative
// amplitude for the given speed.
func JitterStrength(jitterPct int, wpm float64) float64 {
	s := clampFloat(float64(jitterPct)/100, minJitterStrength, maxJitterStrength)
	if wpm >= fastWPM && s > fastJitterCap {
		s = fastJitterCap
	}
	return s
}

// ApplyJitter scales delay by (1 + u*strength) for u in [-1, 1].
func ApplyJitter(delayMs, strength, u float64) float64 {
	return math.Max(delayMs*(1+clampFloat(u, -1, 1)*strength), MinDelayMs)
}

// Pacer tracks one session's schedule. A speed change re-anchors the
// schedule at the current character, so earlier characters are not judged
// against the new rate. Pauses are not excluded from elapsed time, so the
// run catches up afterwards within the correction bound.
type Pacer struct {
	total       int
	now         func() time.Time
	anchor      time.Time
	anchorIndex int
	wpm         float64
}

// NewPacer creates a pacer for a run of total characters.
func NewPacer(total int, now func() time.Time) *Pacer {
	if now == nil {
		now = time.Now
	}
	return &Pacer{total: total, now: now}
}

// NextDelay returns the delay in milliseconds before character i.
func (p *Pacer) NextDelay(i int, wpm float64) float64 {
	t := p.now()
	if p.anchor.IsZero() || wpm != p.wpm {
		p.anchor = t
		p.anchorIndex = i
		p.wpm = wpm
	}
	return DriftDelay(i-p.anchorIndex, p.total-p.anchorIndex, t.Sub(p.anchor), wpm)
}

func msToDuration(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
