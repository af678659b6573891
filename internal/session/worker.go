// internal/session/worker.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/keyboard"
)

// worker types one session's text. Exactly one exists per running session.
type worker struct {
	c         *Controller
	id        string
	runes     []rune
	done      chan struct{}
	planner   *humanoid.Planner
	lastPress time.Time
}

func (w *worker) run() {
	outcome := OutcomeStopped
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			w.c.log.Error("Typing worker panicked",
				zap.String("session_id", w.id),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		w.c.finish(w, outcome)
	}()

	// Keystrokes are never interrupted mid-press; stop is observed between them.
	ctx := context.Background()

	var prev rune
	for i, r := range w.runes {
		cfg, ok := w.c.iterationConfig()
		if !ok {
			return
		}
		step := w.planner.Plan(i, prev, r, cfg)

		if !w.c.sleep(step.Wait) {
			return
		}
		if step.Typo != nil {
			if !w.typeWithCorrection(ctx, r, step) {
				return
			}
		} else {
			w.press(ctx, keyboard.ForRune(r), step.Hold, KeyChar)
		}
		w.c.advance(i + 1)

		if !w.c.sleep(step.After) {
			return
		}
		prev = r
	}
	outcome = OutcomeCompleted
}

// typeWithCorrection sends the wrong key, notices, backspaces, and sends
// the intended key. It reports false if the session ended midway.
func (w *worker) typeWithCorrection(ctx context.Context, r rune, step humanoid.Step) bool {
	typo := step.Typo
	w.press(ctx, keyboard.ForRune(typo.Wrong), step.Hold, KeyTypo)
	w.c.recordTypo()
	if !w.c.sleep(typo.Notice) {
		return false
	}
	w.press(ctx, keyboard.KeyBackspace, typo.BackspaceHold, KeyBackspace)
	if !w.c.sleep(typo.Correction) {
		return false
	}
	w.press(ctx, keyboard.ForRune(r), step.Hold, KeyChar)
	w.planner.Typos().Corrected()
	return true
}

// press emits one key. Failures are counted and logged, never fatal.
func (w *worker) press(ctx context.Context, k keyboard.Key, hold time.Duration, kind KeyKind) {
	now := w.c.now()
	var since time.Duration
	if !w.lastPress.IsZero() {
		since = now.Sub(w.lastPress)
	}
	w.lastPress = now

	if err := w.c.emitter.PressAndRelease(ctx, k, hold); err != nil {
		w.c.recordFailure()
		w.c.observer.EmissionFailed(kind)
		w.c.log.Warn("Key emission failed",
			zap.String("session_id", w.id),
			zap.Stringer("key", k),
			zap.Error(err))
		return
	}
	w.c.observer.KeyEmitted(kind, since)
	w.c.log.Debug("Key emitted", zap.Stringer("key", k), zap.Duration("hold", hold), zap.String("kind", string(kind)))
}

// iterationConfig copies the knobs for one character, or reports that the
// session is over.
func (c *Controller) iterationConfig() (humanoid.Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, c.running
}

func (c *Controller) advance(typed int) {
	c.mu.Lock()
	c.typed = typed
	c.mu.Unlock()
}

func (c *Controller) recordTypo() {
	c.mu.Lock()
	c.typos++
	c.mu.Unlock()
}

func (c *Controller) recordFailure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

// sleep waits for d while honoring pause and stop. The deadline is fixed at
// entry, so time spent paused counts against it. Zero waits still block
// while paused. It reports false once the session is no longer running.
func (c *Controller) sleep(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		c.mu.Lock()
		running, paused, changed := c.running, c.paused, c.changed
		c.mu.Unlock()

		if !running {
			return false
		}
		if paused {
			<-changed
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}

		t := time.NewTimer(remaining)
		select {
		case <-t.C:
		case <-changed:
			t.Stop()
		}
	}
}

// finish returns the controller to idle. It runs on every worker exit path.
func (c *Controller) finish(w *worker, outcome Outcome) {
	defer close(w.done)

	c.mu.Lock()
	c.running = false
	c.paused = false
	c.outcome = outcome
	c.endedAt = c.now()
	typed := c.typed
	elapsed := c.endedAt.Sub(c.startedAt)
	c.signalLocked()
	c.mu.Unlock()

	c.observer.SessionEnded(w.id, outcome, typed, elapsed)
	c.log.Info("Typing session finished",
		zap.String("session_id", w.id),
		zap.String("outcome", string(outcome)),
		zap.Int("typed", typed),
		zap.Int("total", len(w.runes)),
		zap.Duration("elapsed", elapsed))
}
