// internal/humanoid/profile.go
package humanoid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"unicode"
)

// MinCalibrationSamples is the number of hold and flight samples needed to
// build a profile.
const MinCalibrationSamples = 10

// ErrInsufficientData is returned when calibration samples are too sparse.
var ErrInsufficientData = errors.New("insufficient calibration data")

// Hold and flight sampling bounds, in milliseconds.
const (
	minHoldMs   = 20.0
	maxHoldMs   = 300.0
	minFlightMs = 15.0
	maxFlightMs = 1000.0

	minSpacePauseMs = 30.0
	minPunctPauseMs = 50.0
)

// Samples is the raw timing data captured from a human typing session.
type Samples struct {
	HoldTimes   []float64            `json:"holdTimes"`
	FlightTimes []float64            `json:"flightTimes"`
	Digraphs    map[string][]float64 `json:"digraphs"`
}

// Profile is a statistical model of one person's typing rhythm.
type Profile struct {
	Calibrated   bool               `json:"calibrated"`
	HoldMean     float64            `json:"holdMean"`
	HoldStdDev   float64            `json:"holdStdDev"`
	FlightMean   float64            `json:"flightMean"`
	FlightStdDev float64            `json:"flightStdDev"`
	DigraphMeans map[string]float64 `json:"digraphs,omitempty"`
	BaseWPM      float64            `json:"baseWpm"`
}

// DefaultProfile is the uncalibrated starting point.
func DefaultProfile() Profile {
	return Profile{
		HoldMean:     85,
		HoldStdDev:   25,
		FlightMean:   150,
		FlightStdDev: 50,
		BaseWPM:      60,
	}
}

// ComputeProfile derives a calibrated profile from raw samples. Digraph keys
// are folded to lower case; entries that are not exactly two characters or
// carry no samples are dropped.
func ComputeProfile(s Samples) (Profile, error) {
	if len(s.HoldTimes) < MinCalibrationSamples || len(s.FlightTimes) < MinCalibrationSamples {
		return Profile{}, fmt.Errorf("%w: got %d hold and %d flight samples, need at least %d of each",
			ErrInsufficientData, len(s.HoldTimes), len(s.FlightTimes), MinCalibrationSamples)
	}

	p := Profile{Calibrated: true}
	p.HoldMean, p.HoldStdDev = meanStdDev(s.HoldTimes, 0.3)
	p.FlightMean, p.FlightStdDev = meanStdDev(s.FlightTimes, 0.35)
	if p.FlightMean <= 0 {
		return Profile{}, fmt.Errorf("%w: mean flight time must be positive", ErrInsufficientData)
	}

	grouped := make(map[string][]float64, len(s.Digraphs))
	for key, times := range s.Digraphs {
		k := strings.ToLower(key)
		if len([]rune(k)) != 2 || len(times) == 0 {
			continue
		}
		grouped[k] = append(grouped[k], times...)
	}
	if len(grouped) > 0 {
		p.DigraphMeans = make(map[string]float64, len(grouped))
		for k, times := range grouped {
			p.DigraphMeans[k], _ = meanStdDev(times, 0)
		}
	}

	// One word is five characters; a character costs roughly one flight.
	p.BaseWPM = 60000 / (p.FlightMean * 5)
	return p, nil
}

// Clone returns a deep copy safe to hand to a running session.
func (p Profile) Clone() Profile {
	if p.DigraphMeans != nil {
		m := make(map[string]float64, len(p.DigraphMeans))
		for k, v := range p.DigraphMeans {
			m[k] = v
		}
		p.DigraphMeans = m
	}
	return p
}

// DigraphKeys lists the learned digraphs in sorted order.
func (p Profile) DigraphKeys() []string {
	keys := make([]string, 0, len(p.DigraphMeans))
	for k := range p.DigraphMeans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// speedScale converts the learned rhythm to the requested speed.
func (p Profile) speedScale(targetWPM float64) float64 {
	return p.BaseWPM / math.Max(targetWPM, MinWPM)
}

// SampleHoldTime returns a key hold duration in milliseconds.
func (p Profile) SampleHoldTime(rng *rand.Rand, targetWPM float64) float64 {
	hold := sampleGaussian(rng, p.HoldMean, p.HoldStdDev) * p.speedScale(targetWPM)
	return clampFloat(hold, minHoldMs, maxHoldMs)
}

// SampleFlightTime returns the gap before curr, in milliseconds. A learned
// digraph for prev+curr takes precedence over the general flight model.
func (p Profile) SampleFlightTime(rng *rand.Rand, prev, curr rune, targetWPM float64) float64 {
	scale := p.speedScale(targetWPM)
	if prev != 0 {
		key := string([]rune{unicode.ToLower(prev), unicode.ToLower(curr)})
		if base, ok := p.DigraphMeans[key]; ok {
			return clampFloat(sampleGaussian(rng, base, base*0.15)*scale, minFlightMs, maxFlightMs)
		}
	}
	return clampFloat(sampleGaussian(rng, p.FlightMean, p.FlightStdDev)*scale, minFlightMs, maxFlightMs)
}

// SampleSpacePause returns the gap before a space, in milliseconds.
func (p Profile) SampleSpacePause(rng *rand.Rand, targetWPM float64) float64 {
	mean := p.FlightMean * 1.4
	pause := sampleGaussian(rng, mean, mean*0.3) * p.speedScale(targetWPM)
	return math.Max(minSpacePauseMs, pause)
}

// SamplePunctuationPause returns the gap before punctuation, in milliseconds.
func (p Profile) SamplePunctuationPause(rng *rand.Rand, targetWPM float64) float64 {
	mean := p.FlightMean * 2.2
	pause := sampleGaussian(rng, mean, mean*0.3) * p.speedScale(targetWPM)
	return math.Max(minPunctPauseMs, pause)
}

// meanStdDev returns the mean and sample standard deviation. With a single
// sample the deviation falls back to mean*fallback.
func meanStdDev(xs []float64, fallback float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, mean * fallback
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
