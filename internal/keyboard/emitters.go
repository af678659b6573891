// internal/keyboard/emitters.go
package keyboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogEmitter writes each keystroke to the log instead of the OS. It keeps
// the hold time so a dry run paces like a real one.
type LogEmitter struct {
	log *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{log: logger.Named("keyboard")}
}

func (e *LogEmitter) PressAndRelease(ctx context.Context, k Key, d time.Duration) error {
	e.log.Info("key", zap.Stringer("key", k), zap.Duration("hold", d))
	return hold(ctx, d)
}

// TextEmitter renders keystrokes into an in-memory document, applying
// backspace, enter and tab the way a plain text field would.
type TextEmitter struct {
	mu    sync.Mutex
	runes []rune
	keys  int
}

func NewTextEmitter() *TextEmitter {
	return &TextEmitter{}
}

func (e *TextEmitter) PressAndRelease(ctx context.Context, k Key, d time.Duration) error {
	e.mu.Lock()
	e.keys++
	switch k.Special {
	case Backspace:
		if n := len(e.runes); n > 0 {
			e.runes = e.runes[:n-1]
		}
	case Enter:
		e.runes = append(e.runes, '\n')
	case Tab:
		e.runes = append(e.runes, '\t')
	default:
		e.runes = append(e.runes, k.Rune)
	}
	e.mu.Unlock()
	return hold(ctx, d)
}

// String returns the document as typed so far.
func (e *TextEmitter) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var b strings.Builder
	for _, r := range e.runes {
		b.WriteRune(r)
	}
	return b.String()
}

// Keystrokes returns how many keys were pressed, corrections included.
func (e *TextEmitter) Keystrokes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.keys
}
