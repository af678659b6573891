// internal/humanoid/params.go
package humanoid

import (
	"net/url"
	"strconv"
	"strings"
)

type knobSetter func(c *Config, raw string) error

// knobs maps control-surface parameter names onto config fields.
var knobs = map[string]knobSetter{
	"wpm":        intKnob("wpm", func(c *Config, v int) { c.WPM = v }),
	"strict":     boolKnob("strict", func(c *Config, v bool) { c.Strict = v }),
	"jitter":     intKnob("jitter", func(c *Config, v int) { c.JitterPct = v }),
	"think":      intKnob("think", func(c *Config, v int) { c.ThinkPct = v }),
	"typos":      boolKnob("typos", func(c *Config, v bool) { c.Typos = v }),
	"mistakePct": intKnob("mistakePct", func(c *Config, v int) { c.MistakePct = v }),
	"typoPct":    intKnob("typoPct", func(c *Config, v int) { c.MistakePct = v }),
	"cons":       intKnob("cons", func(c *Config, v int) { c.MaxConsecutive = v }),
	"lpen":       boolKnob("lpen", func(c *Config, v bool) { c.LongPause = v }),
	"lpc":        intKnob("lpc", func(c *Config, v int) { c.LongPausePct = v }),
	"lpmin":      intKnob("lpmin", func(c *Config, v int) { c.LongPauseMinMs = v }),
	"lpmax":      intKnob("lpmax", func(c *Config, v int) { c.LongPauseMaxMs = v }),
	"codemode":   boolKnob("codemode", func(c *Config, v bool) { c.CodeMode = v }),
	"nl": func(c *Config, raw string) error {
		m, err := ParseNewlineMode(raw)
		if err != nil {
			return &ValidationError{Key: "nl", Value: raw, Reason: "expected keep, space, remove or 0-2"}
		}
		c.Newline = m
		return nil
	},
	"model": func(c *Config, raw string) error {
		m, err := ParseModel(raw)
		if err != nil {
			return &ValidationError{Key: "model", Value: raw, Reason: "expected drift or human"}
		}
		c.Model = m
		return nil
	},
}

// WithParams returns a copy of c with every recognized parameter applied,
// plus the names of the parameters that were recognized. Unknown names are
// ignored. If any recognized value fails to parse, or the result is
// inconsistent, the unmodified config is returned alongside the error and
// nothing is applied.
func (c Config) WithParams(values url.Values) (Config, []string, error) {
	next := c
	var applied []string
	for key, vals := range values {
		set, ok := knobs[key]
		if !ok || len(vals) == 0 {
			continue
		}
		if err := set(&next, vals[len(vals)-1]); err != nil {
			return c, nil, err
		}
		applied = append(applied, key)
	}
	next = next.Clamp()
	if err := next.Validate(); err != nil {
		return c, nil, err
	}
	return next, applied, nil
}

// ParseBool accepts the usual strconv forms plus on/off and yes/no.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

func intKnob(key string, apply func(*Config, int)) knobSetter {
	return func(c *Config, raw string) error {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return &ValidationError{Key: key, Value: raw, Reason: "expected an integer"}
		}
		apply(c, v)
		return nil
	}
}

func boolKnob(key string, apply func(*Config, bool)) knobSetter {
	return func(c *Config, raw string) error {
		v, err := ParseBool(raw)
		if err != nil {
			return &ValidationError{Key: key, Value: raw, Reason: "expected a boolean"}
		}
		apply(c, v)
		return nil
	}
}
