//go:build robotgo

// internal/keyboard/robotgo_emitter.go
package keyboard

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"
)

func init() {
	Register("robotgo", func(logger *zap.Logger) (Emitter, error) {
		return NewRobotgoEmitter(logger), nil
	})
}

// RobotgoEmitter injects keystrokes into the focused window of the desktop
// session. Letters and digits are held for the requested duration; other
// printable characters go through the layout-aware string path and the
// hold is spent afterwards.
type RobotgoEmitter struct {
	log *zap.Logger
}

func NewRobotgoEmitter(logger *zap.Logger) *RobotgoEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotgoEmitter{log: logger.Named("robotgo")}
}

func (e *RobotgoEmitter) PressAndRelease(ctx context.Context, k Key, d time.Duration) error {
	name, mods, direct := robotgoKey(k)
	if !direct {
		robotgo.TypeStr(string(k.Rune))
		return hold(ctx, d)
	}

	if err := robotgo.KeyDown(name, mods...); err != nil {
		return fmt.Errorf("key down %s: %w", k, err)
	}
	// The key is always released, even if the hold is cut short.
	holdErr := hold(ctx, d)
	if err := robotgo.KeyUp(name, mods...); err != nil {
		return fmt.Errorf("key up %s: %w", k, err)
	}
	return holdErr
}

func robotgoKey(k Key) (name string, mods []interface{}, direct bool) {
	switch k.Special {
	case Enter:
		return "enter", nil, true
	case Backspace:
		return "backspace", nil, true
	case Tab:
		return "tab", nil, true
	}
	r := k.Rune
	if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ') {
		return "", nil, false
	}
	if r == ' ' {
		return "space", nil, true
	}
	if unicode.IsUpper(r) {
		return string(unicode.ToLower(r)), []interface{}{"shift"}, true
	}
	return string(r), nil, true
}
