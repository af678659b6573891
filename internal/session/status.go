// internal/session/status.go
package session

import (
	"math"
	"time"

	"github.com/xkilldash9x/humantype/internal/humanoid"
)

// Status is a point-in-time view of the knobs, the profile summary and the
// current or most recent session. Counters from a finished session stay
// visible until the next one starts.
type Status struct {
	humanoid.Config

	Running          bool       `json:"running"`
	Paused           bool       `json:"paused"`
	Typed            int        `json:"typed"`
	Total            int        `json:"total"`
	TypoCount        int        `json:"typoCount"`
	EmissionFailures int        `json:"emissionFailures"`
	SessionID        string     `json:"sessionId,omitempty"`
	Outcome          Outcome    `json:"outcome,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	ElapsedMs        int64      `json:"elapsedMs"`
	AchievedWPM      float64    `json:"achievedWpm"`

	Calibrated bool     `json:"calibrated"`
	BaseWPM    *float64 `json:"baseWpm"`
}

// Status returns a consistent snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	s := Status{
		Config:           c.cfg,
		Running:          c.running,
		Paused:           c.paused,
		Typed:            c.typed,
		Total:            c.total,
		TypoCount:        c.typos,
		EmissionFailures: c.failures,
		SessionID:        c.id,
		Outcome:          c.outcome,
		Calibrated:       c.profile.Calibrated,
	}
	if c.profile.Calibrated {
		base := round1(c.profile.BaseWPM)
		s.BaseWPM = &base
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		s.StartedAt = &started
		end := c.endedAt
		if c.running || end.IsZero() {
			end = c.now()
		}
		elapsed := end.Sub(c.startedAt)
		s.ElapsedMs = elapsed.Milliseconds()
		s.AchievedWPM = round1(achievedWPM(c.typed, elapsed))
	}
	return s
}

// achievedWPM uses the five-characters-per-word convention.
func achievedWPM(chars int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(chars) / 5 / minutes
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
