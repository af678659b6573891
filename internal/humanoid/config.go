// internal/humanoid/config.go
package humanoid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// ErrInvalidConfig is wrapped by every ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError reports a rejected knob value.
type ValidationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", e.Key, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// NewlineMode selects how line breaks in the source text are handled.
type NewlineMode int

const (
	NewlineKeep NewlineMode = iota
	NewlineSpace
	NewlineRemove
)

func (m NewlineMode) String() string {
	switch m {
	case NewlineKeep:
		return "keep"
	case NewlineSpace:
		return "space"
	case NewlineRemove:
		return "remove"
	}
	return fmt.Sprintf("NewlineMode(%d)", int(m))
}

// MarshalText renders the mode by name.
func (m NewlineMode) MarshalText() ([]byte, error) {
	if m < NewlineKeep || m > NewlineRemove {
		return nil, fmt.Errorf("unknown newline mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts either the name or the legacy numeric form (0, 1, 2).
func (m *NewlineMode) UnmarshalText(b []byte) error {
	parsed, err := ParseNewlineMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseNewlineMode parses "keep", "space", "remove" or 0, 1, 2.
func ParseNewlineMode(s string) (NewlineMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "keep":
		return NewlineKeep, nil
	case "1", "space":
		return NewlineSpace, nil
	case "2", "remove":
		return NewlineRemove, nil
	}
	return 0, fmt.Errorf("unknown newline mode %q", s)
}

// Model selects the pacing strategy used outside strict mode.
type Model string

const (
	// ModelDrift paces on the closed-loop schedule with jitter on top.
	ModelDrift Model = "drift"
	// ModelHuman samples delays from the timing profile, or from a simple
	// rate model when no profile has been calibrated.
	ModelHuman Model = "human"
)

// ParseModel validates a pacing model name.
func ParseModel(s string) (Model, error) {
	switch m := Model(strings.ToLower(strings.TrimSpace(s))); m {
	case ModelDrift, ModelHuman:
		return m, nil
	}
	return "", fmt.Errorf("unknown pacing model %q", s)
}

// Knob bounds. Values outside these ranges saturate.
const (
	MinWPM = 10
	MaxWPM = 300

	MinJitterPct = 5
	MaxJitterPct = 45

	MaxMistakePct     = 20
	MaxConsecutiveCap = 10

	MinLongPauseMs = 100
	MaxLongPauseMs = 10000
)

// Config holds the runtime pacing knobs. A copy is read once per character,
// so updates take effect at the next character boundary.
type Config struct {
	WPM    int  `json:"wpm" yaml:"wpm"`
	Strict bool `json:"strict" yaml:"strict"`

	JitterPct int `json:"jitter" yaml:"jitter"`
	ThinkPct  int `json:"think" yaml:"think"`

	Typos          bool `json:"typos" yaml:"typos"`
	MistakePct     int  `json:"mistakePct" yaml:"mistakePct"`
	MaxConsecutive int  `json:"cons" yaml:"cons"`

	LongPause      bool `json:"lpen" yaml:"lpen"`
	LongPausePct   int  `json:"lpc" yaml:"lpc"`
	LongPauseMinMs int  `json:"lpmin" yaml:"lpmin"`
	LongPauseMaxMs int  `json:"lpmax" yaml:"lpmax"`

	Newline  NewlineMode `json:"nl" yaml:"nl"`
	CodeMode bool        `json:"codemode" yaml:"codemode"`
	Model    Model       `json:"model" yaml:"model"`
}

// DefaultConfig returns the knobs of an average, mildly imperfect typist.
func DefaultConfig() Config {
	return Config{
		WPM:            80,
		JitterPct:      18,
		ThinkPct:       6,
		Typos:          true,
		MistakePct:     2,
		MaxConsecutive: 1,
		LongPause:      true,
		LongPausePct:   2,
		LongPauseMinMs: 600,
		LongPauseMaxMs: 1800,
		Newline:        NewlineSpace,
		Model:          ModelDrift,
	}
}

// Clamp saturates every numeric knob into its legal range.
func (c Config) Clamp() Config {
	c.WPM = clampInt(c.WPM, MinWPM, MaxWPM)
	c.JitterPct = clampInt(c.JitterPct, MinJitterPct, MaxJitterPct)
	c.ThinkPct = clampInt(c.ThinkPct, 0, 100)
	c.MistakePct = clampInt(c.MistakePct, 0, MaxMistakePct)
	c.MaxConsecutive = clampInt(c.MaxConsecutive, 0, MaxConsecutiveCap)
	c.LongPausePct = clampInt(c.LongPausePct, 0, 100)
	c.LongPauseMinMs = clampInt(c.LongPauseMinMs, MinLongPauseMs, MaxLongPauseMs)
	c.LongPauseMaxMs = clampInt(c.LongPauseMaxMs, MinLongPauseMs, MaxLongPauseMs)
	if c.Model == "" {
		c.Model = ModelDrift
	}
	return c
}

// Validate checks the relations a clamp cannot repair.
func (c Config) Validate() error {
	if c.LongPauseMinMs > c.LongPauseMaxMs {
		return &ValidationError{
			Key:    "lpmin",
			Value:  fmt.Sprint(c.LongPauseMinMs),
			Reason: fmt.Sprintf("must not exceed lpmax (%d)", c.LongPauseMaxMs),
		}
	}
	if c.Newline < NewlineKeep || c.Newline > NewlineRemove {
		return &ValidationError{Key: "nl", Value: fmt.Sprint(int(c.Newline)), Reason: "unknown newline mode"}
	}
	if _, err := ParseModel(string(c.Model)); err != nil {
		return &ValidationError{Key: "model", Value: string(c.Model), Reason: err.Error()}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// sampleGaussian draws from N(mean, stdDev).
func sampleGaussian(rng *rand.Rand, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return mean
	}
	return mean + rng.NormFloat64()*stdDev
}

// sampleUniform draws from [lo, hi].
func sampleUniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
