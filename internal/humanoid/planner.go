// internal/humanoid/planner.go
package humanoid

import (
	"math"
	"math/rand"
	"time"
)

// Secondary pause timings, in milliseconds.
const (
	thinkMinMs       = 400.0
	thinkMaxMs       = 1000.0
	punctAfterMinMs  = 40.0
	punctAfterMaxMs  = 160.0
	lineAfterMinMs   = 120.0
	lineAfterMaxMs   = 360.0
	simpleHoldMeanMs = 80.0
	simpleHoldStdMs  = 20.0
)

// Step is the plan for a single character.
type Step struct {
	// Wait is spent before the key goes down.
	Wait time.Duration
	// Hold is how long the key stays down.
	Hold time.Duration
	// After is spent once the character is complete.
	After time.Duration
	// Typo, when set, is typed and corrected before the intended key.
	Typo *Typo
}

// Planner produces keystroke timings for one run of text. It is owned by a
// single worker and is not safe for concurrent use.
type Planner struct {
	profile Profile
	pacer   *Pacer
	typos   *TypoMachine
	rng     *rand.Rand
}

// NewPlanner creates a planner for total characters using a snapshot of the
// timing profile.
func NewPlanner(profile Profile, total int, rng *rand.Rand, now func() time.Time) *Planner {
	return &Planner{
		profile: profile,
		pacer:   NewPacer(total, now),
		typos:   NewTypoMachine(rng),
		rng:     rng,
	}
}

// Typos exposes the planner's typo machine.
func (p *Planner) Typos() *TypoMachine { return p.typos }

// Plan returns the timings for character i. prev is the previously typed
// character, or 0 at the start.
func (p *Planner) Plan(i int, prev, curr rune, cfg Config) Step {
	wpm := float64(cfg.WPM)

	var step Step
	if cfg.Strict || cfg.Model != ModelHuman {
		step = p.planDrift(i, cfg, wpm)
	} else if p.profile.Calibrated {
		step = p.planProfile(prev, curr, wpm)
	} else {
		step = p.planSimple(curr, wpm)
	}

	if !cfg.Strict {
		p.addSecondaryPauses(&step, curr, cfg)
	}
	if typo, ok := p.typos.Next(curr, cfg); ok {
		step.Typo = &typo
	}
	return step
}

// planDrift splits the scheduled delay into wait and hold, so a character
// costs exactly one scheduled interval.
func (p *Planner) planDrift(i int, cfg Config, wpm float64) Step {
	delay := p.pacer.NextDelay(i, wpm)
	holdShare := 0.35
	if !cfg.Strict {
		delay = ApplyJitter(delay, JitterStrength(cfg.JitterPct, wpm), p.rng.Float64()*2-1)
		holdShare = sampleUniform(p.rng, 0.25, 0.45)
	}
	total := msToDuration(delay)
	hold := msToDuration(math.Min(delay*holdShare, maxHoldMs))
	return Step{Wait: total - hold, Hold: hold}
}

func (p *Planner) planProfile(prev, curr rune, wpm float64) Step {
	var wait float64
	switch {
	case curr == ' ':
		wait = p.profile.SampleSpacePause(p.rng, wpm)
	case isLineBreak(curr):
		wait = p.profile.SamplePunctuationPause(p.rng, wpm) * 1.5
	case IsPunctuation(curr):
		wait = p.profile.SamplePunctuationPause(p.rng, wpm)
	default:
		wait = p.profile.SampleFlightTime(p.rng, prev, curr, wpm)
	}
	return Step{
		Wait: msToDuration(wait),
		Hold: msToDuration(p.profile.SampleHoldTime(p.rng, wpm)),
	}
}

// planSimple is the rate model used before any calibration.
func (p *Planner) planSimple(curr rune, wpm float64) Step {
	base := BaseDelayMs(wpm)
	wait := base + sampleGaussian(p.rng, 0, base*0.2)
	switch {
	case curr == ' ':
		wait *= 1.3
	case IsPunctuation(curr), isLineBreak(curr):
		wait *= 2.0
	}
	hold := clampFloat(sampleGaussian(p.rng, simpleHoldMeanMs, simpleHoldStdMs), minHoldMs, maxHoldMs)
	return Step{
		Wait: msToDuration(math.Max(wait, MinDelayMs)),
		Hold: msToDuration(hold),
	}
}

func (p *Planner) addSecondaryPauses(step *Step, curr rune, cfg Config) {
	switch {
	case curr == ' ':
		if cfg.LongPause && p.rng.Intn(100) < cfg.LongPausePct {
			step.Wait += msToDuration(sampleUniform(p.rng, float64(cfg.LongPauseMinMs), float64(cfg.LongPauseMaxMs)))
		}
		if p.rng.Intn(100) < cfg.ThinkPct {
			step.After += msToDuration(sampleUniform(p.rng, thinkMinMs, thinkMaxMs))
		}
	case IsPunctuation(curr):
		step.After += msToDuration(sampleUniform(p.rng, punctAfterMinMs, punctAfterMaxMs))
	case isLineBreak(curr):
		step.After += msToDuration(sampleUniform(p.rng, lineAfterMinMs, lineAfterMaxMs))
	}
}
