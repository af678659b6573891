// internal/session/observer.go
package session

import (
	"errors"
	"time"
)

var (
	// ErrBusy is returned by Start while a session is running.
	ErrBusy = errors.New("a typing session is already running")
	// ErrNotRunning is returned by pause and resume while idle.
	ErrNotRunning = errors.New("no typing session is running")
	// ErrEmptyText is returned by Start when there is nothing to type.
	ErrEmptyText = errors.New("nothing to type")
)

// KeyKind classifies an emitted keystroke.
type KeyKind string

const (
	KeyChar      KeyKind = "char"
	KeyTypo      KeyKind = "typo"
	KeyBackspace KeyKind = "backspace"
)

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Observer receives session lifecycle and keystroke events. Calls are made
// from the worker goroutine without the state lock held.
type Observer interface {
	SessionStarted(id string, chars int)
	KeyEmitted(kind KeyKind, sincePrevious time.Duration)
	EmissionFailed(kind KeyKind)
	SessionEnded(id string, outcome Outcome, typed int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string, int) {}
func (nopObserver) KeyEmitted(KeyKind, time.Duration) {}
func (nopObserver) EmissionFailed(KeyKind) {}
func (nopObserver) SessionEnded(string, Outcome, int, time.Duration) {}
