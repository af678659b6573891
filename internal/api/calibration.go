// File: internal/api/calibration.go
package api

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/xkilldash9x/humantype/internal/humanoid"
)

//go:embed schemas/calibration.schema.json
var calibrationSchemaJSON []byte

const calibrationSchemaURL = "calibration.schema.json"

var calibrationSchema = mustCompile(calibrationSchemaURL, calibrationSchemaJSON)

var (
	// ErrNoData means the calibration payload was empty or not an object.
	ErrNoData = errors.New("no calibration data")
	// ErrMalformedSamples means the payload did not match the calibration schema.
	ErrMalformedSamples = errors.New("malformed calibration data")
)

func mustCompile(url string, schema []byte) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("adding schema %s: %v", url, err))
	}
	return compiler.MustCompile(url)
}

// CalibrationResult is the summary returned after a successful calibration.
type CalibrationResult struct {
	Success    bool    `json:"success"`
	BaseWPM    float64 `json:"baseWpm"`
	HoldMean   float64 `json:"holdMean"`
	FlightMean float64 `json:"flightMean"`
	Digraphs   int     `json:"digraphs"`
}

// DecodeSamples parses and validates a calibration payload of the form
// {"holdTimes": [...], "flightTimes": [...], "digraphs": {"th": [...]}}.
// A digraph may carry a single number instead of a list.
func DecodeSamples(data []byte) (humanoid.Samples, error) {
	var doc interface{}
	if len(bytes.TrimSpace(data)) == 0 {
		return humanoid.Samples{}, ErrNoData
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return humanoid.Samples{}, fmt.Errorf("%w: %v", ErrMalformedSamples, err)
	}
	obj, ok := doc.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return humanoid.Samples{}, ErrNoData
	}
	if err := calibrationSchema.Validate(doc); err != nil {
		return humanoid.Samples{}, fmt.Errorf("%w: %v", ErrMalformedSamples, err)
	}

	s := humanoid.Samples{
		HoldTimes:   numbers(obj["holdTimes"]),
		FlightTimes: numbers(obj["flightTimes"]),
	}
	if digraphs, ok := obj["digraphs"].(map[string]interface{}); ok {
		s.Digraphs = make(map[string][]float64, len(digraphs))
		for pair, v := range digraphs {
			switch t := v.(type) {
			case float64:
				s.Digraphs[pair] = []float64{t}
			case []interface{}:
				s.Digraphs[pair] = numbers(t)
			}
		}
	}
	return s, nil
}

// numbers extracts the float64 elements of a decoded JSON array.
func numbers(v interface{}) []float64 {
	arr, _ := v.([]interface{})
	out := make([]float64, 0, len(arr))
	for _, x := range arr {
		if f, ok := x.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func summarize(p humanoid.Profile) CalibrationResult {
	return CalibrationResult{
		Success:    true,
		BaseWPM:    round1(p.BaseWPM),
		HoldMean:   round1(p.HoldMean),
		FlightMean: round1(p.FlightMean),
		Digraphs:   len(p.DigraphMeans),
	}
}
