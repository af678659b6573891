// File: internal/config/humanoid_config.go
// TypingConfig holds the startup values for the runtime typing knobs. The
// same knobs can be changed later through the control surface; the file only
// seeds them and re-seeds them on hot reload.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/humantype/internal/humanoid"
)

// TypingConfig mirrors humanoid.Config in file-friendly form.
type TypingConfig struct {
	WPM            int             `mapstructure:"wpm" yaml:"wpm"`
	Strict         bool            `mapstructure:"strict" yaml:"strict"`
	JitterPct      int             `mapstructure:"jitter_pct" yaml:"jitter_pct"`
	ThinkPct       int             `mapstructure:"think_pct" yaml:"think_pct"`
	Typos          bool            `mapstructure:"typos" yaml:"typos"`
	MistakePct     int             `mapstructure:"mistake_pct" yaml:"mistake_pct"`
	MaxConsecutive int             `mapstructure:"max_consecutive" yaml:"max_consecutive"`
	LongPause      LongPauseConfig `mapstructure:"long_pause" yaml:"long_pause"`
	// NewlineMode is keep, space or remove (0, 1, 2 are accepted too).
	NewlineMode string `mapstructure:"newline_mode" yaml:"newline_mode"`
	CodeMode    bool   `mapstructure:"code_mode" yaml:"code_mode"`
	// Model is drift or human.
	Model string `mapstructure:"model" yaml:"model"`
}

// LongPauseConfig controls the occasional long pause before a word.
type LongPauseConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	ChancePct int  `mapstructure:"chance_pct" yaml:"chance_pct"`
	MinMs     int  `mapstructure:"min_ms" yaml:"min_ms"`
	MaxMs     int  `mapstructure:"max_ms" yaml:"max_ms"`
}

// setTypingDefaults derives the typing defaults from the engine's own, so the
// two never disagree.
func setTypingDefaults(v *viper.Viper) {
	d := humanoid.DefaultConfig()
	v.SetDefault("typing.wpm", d.WPM)
	v.SetDefault("typing.strict", d.Strict)
	v.SetDefault("typing.jitter_pct", d.JitterPct)
	v.SetDefault("typing.think_pct", d.ThinkPct)
	v.SetDefault("typing.typos", d.Typos)
	v.SetDefault("typing.mistake_pct", d.MistakePct)
	v.SetDefault("typing.max_consecutive", d.MaxConsecutive)
	v.SetDefault("typing.long_pause.enabled", d.LongPause)
	v.SetDefault("typing.long_pause.chance_pct", d.LongPausePct)
	v.SetDefault("typing.long_pause.min_ms", d.LongPauseMinMs)
	v.SetDefault("typing.long_pause.max_ms", d.LongPauseMaxMs)
	v.SetDefault("typing.newline_mode", d.Newline.String())
	v.SetDefault("typing.code_mode", d.CodeMode)
	v.SetDefault("typing.model", string(d.Model))
}

// Humanoid converts the section into a clamped, validated engine config.
// Out-of-range numbers saturate; unknown enum words are an error.
func (t TypingConfig) Humanoid() (humanoid.Config, error) {
	nl, err := humanoid.ParseNewlineMode(t.NewlineMode)
	if err != nil {
		return humanoid.Config{}, fmt.Errorf("newline_mode: %w", err)
	}
	model, err := humanoid.ParseModel(t.Model)
	if err != nil {
		return humanoid.Config{}, fmt.Errorf("model: %w", err)
	}

	cfg := humanoid.Config{
		WPM:            t.WPM,
		Strict:         t.Strict,
		JitterPct:      t.JitterPct,
		ThinkPct:       t.ThinkPct,
		Typos:          t.Typos,
		MistakePct:     t.MistakePct,
		MaxConsecutive: t.MaxConsecutive,
		LongPause:      t.LongPause.Enabled,
		LongPausePct:   t.LongPause.ChancePct,
		LongPauseMinMs: t.LongPause.MinMs,
		LongPauseMaxMs: t.LongPause.MaxMs,
		Newline:        nl,
		CodeMode:       t.CodeMode,
		Model:          model,
	}.Clamp()
	if err := cfg.Validate(); err != nil {
		return humanoid.Config{}, err
	}
	return cfg, nil
}
