// internal/keyboard/keyboard.go
package keyboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Special identifies a non-printing key.
type Special int

const (
	None Special = iota
	Enter
	Backspace
	Tab
)

func (s Special) String() string {
	switch s {
	case Enter:
		return "enter"
	case Backspace:
		return "backspace"
	case Tab:
		return "tab"
	}
	return "none"
}

// Key is either a printable character or a special key.
type Key struct {
	Rune    rune
	Special Special
}

var (
	KeyEnter     = Key{Special: Enter}
	KeyBackspace = Key{Special: Backspace}
	KeyTab       = Key{Special: Tab}
)

// ForRune maps a text character onto the key that produces it.
func ForRune(r rune) Key {
	switch r {
	case '\n', '\r':
		return KeyEnter
	case '\t':
		return KeyTab
	case '\b':
		return KeyBackspace
	}
	return Key{Rune: r}
}

func (k Key) String() string {
	if k.Special != None {
		return k.Special.String()
	}
	return string(k.Rune)
}

// Emitter presses a key, holds it for the given duration, and releases it.
type Emitter interface {
	PressAndRelease(ctx context.Context, k Key, hold time.Duration) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, k Key, hold time.Duration) error

func (f EmitterFunc) PressAndRelease(ctx context.Context, k Key, hold time.Duration) error {
	return f(ctx, k, hold)
}

// Factory builds a named backend.
type Factory func(logger *zap.Logger) (Emitter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available by name. Registering the same name
// twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("keyboard: backend %q registered twice", name))
	}
	registry[name] = f
}

// New builds the named backend.
func New(name string, logger *zap.Logger) (Emitter, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("keyboard: unknown backend %q (available: %v)", name, Backends())
	}
	e, err := f(logger)
	if err != nil {
		return nil, fmt.Errorf("keyboard: failed to initialize backend %q: %w", name, err)
	}
	return e, nil
}

// Backends lists the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("log", func(logger *zap.Logger) (Emitter, error) {
		return NewLogEmitter(logger), nil
	})
	Register("text", func(*zap.Logger) (Emitter, error) {
		return NewTextEmitter(), nil
	})
}

// hold sleeps for d unless ctx ends first.
func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
