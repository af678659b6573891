// internal/session/controller.go
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/keyboard"
)

// Controller owns the single typing session and all state shared with the
// control surface. Every field below mu is guarded by it; the worker copies
// what it needs and never sleeps or emits with the lock held.
type Controller struct {
	log      *zap.Logger
	emitter  keyboard.Emitter
	observer Observer
	newRand  func() *rand.Rand
	now      func() time.Time

	mu        sync.Mutex
	cfg       humanoid.Config
	profile   humanoid.Profile
	running   bool
	paused    bool
	typed     int
	total     int
	typos     int
	failures  int
	id        string
	outcome   Outcome
	startedAt time.Time
	endedAt   time.Time
	// changed is closed and replaced on every run or pause transition.
	changed chan struct{}
	// done is closed when the current worker has fully exited.
	done chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers a receiver for session events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRand supplies the random source for each new session.
func WithRand(newRand func() *rand.Rand) Option {
	return func(c *Controller) {
		c.newRand = newRand
	}
}

// WithProfile seeds the controller with an existing timing profile.
func WithProfile(p humanoid.Profile) Option {
	return func(c *Controller) {
		c.profile = p.Clone()
	}
}

// New creates an idle controller.
func New(emitter keyboard.Emitter, cfg humanoid.Config, logger *zap.Logger, opts ...Option) (*Controller, error) {
	cfg = cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid typing configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		log:      logger.Named("session"),
		emitter:  emitter,
		observer: nopObserver{},
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now:     time.Now,
		cfg:     cfg,
		profile: humanoid.DefaultProfile(),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start preprocesses text with the current knobs and types it on a
// background worker. If a stopped worker is still winding down, Start waits
// for it so two workers never overlap.
func (c *Controller) Start(ctx context.Context, text string) (Status, error) {
	if text == "" {
		return Status{}, ErrEmptyText
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Status{}, ErrBusy
	}
	prev := c.done
	c.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return Status{}, ctx.Err()
		}
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Status{}, ErrBusy
	}
	runes := []rune(humanoid.Preprocess(text, c.cfg.Newline, c.cfg.CodeMode))
	if len(runes) == 0 {
		c.mu.Unlock()
		return Status{}, ErrEmptyText
	}

	c.id = uuid.NewString()
	c.running = true
	c.paused = false
	c.typed = 0
	c.total = len(runes)
	c.typos = 0
	c.failures = 0
	c.outcome = ""
	c.startedAt = c.now()
	c.endedAt = time.Time{}
	c.done = make(chan struct{})
	c.signalLocked()

	w := &worker{
		c:       c,
		id:      c.id,
		runes:   runes,
		done:    c.done,
		planner: humanoid.NewPlanner(c.profile.Clone(), len(runes), c.newRand(), c.now),
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.log.Info("Typing session started", zap.String("session_id", w.id), zap.Int("chars", len(runes)))
	c.observer.SessionStarted(w.id, len(runes))
	go w.run()
	return status, nil
}

// Stop asks the running session to end. It is safe to call at any time and
// does not wait for the worker; use Wait for that.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.paused = false
	c.signalLocked()
}

// Pause freezes the running session at the next check.
func (c *Controller) Pause() error {
	return c.setPaused(func(bool) bool { return true })
}

// Resume continues a paused session.
func (c *Controller) Resume() error {
	return c.setPaused(func(bool) bool { return false })
}

// TogglePause flips the pause flag and reports the new value.
func (c *Controller) TogglePause() (bool, error) {
	var now bool
	err := c.setPaused(func(p bool) bool {
		now = !p
		return now
	})
	return now, err
}

func (c *Controller) setPaused(next func(bool) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	if p := next(c.paused); p != c.paused {
		c.paused = p
		c.signalLocked()
	}
	return nil
}

// Wait blocks until the current worker, if any, has exited.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops any session and waits for the worker to exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.Stop()
	return c.Wait(ctx)
}

// Config returns the current knobs.
func (c *Controller) Config() humanoid.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateConfig applies update to the current knobs atomically. The result is
// clamped and validated; on any error nothing changes. A running session
// picks the new values up at its next character.
func (c *Controller) UpdateConfig(update func(humanoid.Config) (humanoid.Config, error)) (humanoid.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := update(c.cfg)
	if err != nil {
		return c.cfg, err
	}
	next = next.Clamp()
	if err := next.Validate(); err != nil {
		return c.cfg, err
	}
	c.cfg = next
	return next, nil
}

// SetWPM changes only the target rate and returns the clamped value.
func (c *Controller) SetWPM(wpm int) int {
	cfg, _ := c.UpdateConfig(func(cfg humanoid.Config) (humanoid.Config, error) {
		cfg.WPM = wpm
		return cfg, nil
	})
	return cfg.WPM
}

// Profile returns a copy of the timing profile.
func (c *Controller) Profile() humanoid.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Clone()
}

// Calibrate replaces the timing profile with one built from samples. On
// failure the existing profile is kept. A running session keeps the
// snapshot it started with.
func (c *Controller) Calibrate(s humanoid.Samples) (humanoid.Profile, error) {
	p, err := humanoid.ComputeProfile(s)
	if err != nil {
		return humanoid.Profile{}, err
	}
	c.mu.Lock()
	c.profile = p.Clone()
	c.mu.Unlock()

	c.log.Info("Timing profile calibrated",
		zap.Float64("base_wpm", p.BaseWPM),
		zap.Float64("hold_mean_ms", p.HoldMean),
		zap.Float64("flight_mean_ms", p.FlightMean),
		zap.Int("digraphs", len(p.DigraphMeans)))
	return p, nil
}

// signalLocked wakes every goroutine waiting on a state change.
func (c *Controller) signalLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
