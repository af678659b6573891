// internal/session/controller_test.go
package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/keyboard"
)

// -- Test Infrastructure --

// recordingEmitter types into a TextEmitter and remembers when each key
// went down. fail, when set, decides per key whether to report an error.
type recordingEmitter struct {
	text *keyboard.TextEmitter
	fail func(keyboard.Key) error

	mu    sync.Mutex
	times []time.Time
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{text: keyboard.NewTextEmitter()}
}

func (e *recordingEmitter) PressAndRelease(ctx context.Context, k keyboard.Key, hold time.Duration) error {
	e.mu.Lock()
	e.times = append(e.times, time.Now())
	e.mu.Unlock()
	if e.fail != nil {
		if err := e.fail(k); err != nil {
			return err
		}
	}
	return e.text.PressAndRelease(ctx, k, hold)
}

func (e *recordingEmitter) pressesSince(t time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, at := range e.times {
		if at.After(t) {
			n++
		}
	}
	return n
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	ended    []Outcome
	keys     map[KeyKind]int
	failures int
}

func (o *countingObserver) SessionStarted(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) KeyEmitted(kind KeyKind, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.keys == nil {
		o.keys = map[KeyKind]int{}
	}
	o.keys[kind]++
}

func (o *countingObserver) EmissionFailed(KeyKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func (o *countingObserver) SessionEnded(_ string, outcome Outcome, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, outcome)
}

func strictConfig(wpm int) humanoid.Config {
	cfg := humanoid.DefaultConfig()
	cfg.Strict = true
	cfg.WPM = wpm
	cfg.Newline = humanoid.NewlineKeep
	return cfg
}

func newTestController(t *testing.T, cfg humanoid.Config, emitter keyboard.Emitter, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithRand(func() *rand.Rand { return rand.New(rand.NewSource(1)) })}, opts...)
	c, err := New(emitter, cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return c
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

// -- Lifecycle --

func TestController_TypesWholeText(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	obs := &countingObserver{}
	c := newTestController(t, strictConfig(300), em, WithObserver(obs))

	st, err := c.Start(context.Background(), "hello world")
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, 11, st.Total)
	assert.NotEmpty(t, st.SessionID)

	waitIdle(t, c)

	final := c.Status()
	assert.False(t, final.Running)
	assert.False(t, final.Paused)
	assert.Equal(t, 11, final.Typed)
	assert.Equal(t, OutcomeCompleted, final.Outcome)
	assert.Equal(t, "hello world", em.text.String())
	assert.Greater(t, final.AchievedWPM, 0.0)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []Outcome{OutcomeCompleted}, obs.ended)
	assert.Equal(t, 11, obs.keys[KeyChar])
}

func TestController_StrictScheduleTiming(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	c := newTestController(t, strictConfig(120), em)

	start := time.Now()
	_, err := c.Start(context.Background(), "abcd")
	require.NoError(t, err)
	waitIdle(t, c)
	elapsed := time.Since(start)

	assert.Equal(t, "abcd", em.text.String())
	assert.Equal(t, 4, em.text.Keystrokes())
	assert.Zero(t, c.Status().TypoCount)
	// Four characters at 100ms each.
	assert.GreaterOrEqual(t, elapsed, 380*time.Millisecond)
	assert.Less(t, elapsed, 600*time.Millisecond)
}

func TestController_EmptyText(t *testing.T) {
	c := newTestController(t, strictConfig(300), newRecordingEmitter())

	_, err := c.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = c.UpdateConfig(func(cfg humanoid.Config) (humanoid.Config, error) {
		cfg.Newline = humanoid.NewlineRemove
		return cfg, nil
	})
	require.NoError(t, err)
	_, err = c.Start(context.Background(), "\n\r\n")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.False(t, c.Status().Running)
}

func TestController_BusyWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	c := newTestController(t, strictConfig(10), em)

	first, err := c.Start(context.Background(), strings.Repeat("x", 50))
	require.NoError(t, err)

	_, err = c.Start(context.Background(), "other")
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, first.SessionID, c.Status().SessionID)
	assert.Equal(t, 50, c.Status().Total)

	c.Stop()
	waitIdle(t, c)
	assert.Equal(t, OutcomeStopped, c.Status().Outcome)
	assert.NotContains(t, em.text.String(), "o")
}

func TestController_StopIsIdempotent(t *testing.T) {
	c := newTestController(t, strictConfig(300), newRecordingEmitter())
	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
	require.NoError(t, c.Wait(context.Background()))
}

func TestController_PauseRequiresRunning(t *testing.T) {
	c := newTestController(t, strictConfig(300), newRecordingEmitter())

	assert.ErrorIs(t, c.Pause(), ErrNotRunning)
	assert.ErrorIs(t, c.Resume(), ErrNotRunning)
	_, err := c.TogglePause()
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestController_PauseFreezesProgress(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	c := newTestController(t, strictConfig(300), em)

	_, err := c.Start(context.Background(), strings.Repeat("a", 200))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Status().Typed >= 3 }, 5*time.Second, 5*time.Millisecond)

	paused, err := c.TogglePause()
	require.NoError(t, err)
	require.True(t, paused)
	assert.True(t, c.Status().Paused)

	// Let any in-flight keystroke finish before measuring.
	time.Sleep(100 * time.Millisecond)
	frozenAt := time.Now()
	typed := c.Status().Typed

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, typed, c.Status().Typed)
	assert.Zero(t, em.pressesSince(frozenAt))

	paused, err = c.TogglePause()
	require.NoError(t, err)
	require.False(t, paused)
	require.Eventually(t, func() bool { return c.Status().Typed > typed }, 5*time.Second, 5*time.Millisecond)

	c.Stop()
	waitIdle(t, c)
	assert.False(t, c.Status().Running)
	assert.False(t, c.Status().Paused)
}

func TestController_StopWhilePaused(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newTestController(t, strictConfig(300), newRecordingEmitter())
	_, err := c.Start(context.Background(), strings.Repeat("a", 100))
	require.NoError(t, err)
	require.NoError(t, c.Pause())

	start := time.Now()
	c.Stop()
	waitIdle(t, c)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, OutcomeStopped, c.Status().Outcome)
}

func TestController_RestartAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	c := newTestController(t, strictConfig(60), em)

	first, err := c.Start(context.Background(), strings.Repeat("a", 100))
	require.NoError(t, err)
	c.Stop()

	second, err := c.Start(context.Background(), "b")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 0, second.Typed)

	waitIdle(t, c)
	assert.True(t, strings.HasSuffix(em.text.String(), "b"))
	assert.Equal(t, 1, c.Status().Typed)
}

func TestController_NewlineRemoval(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	c := newTestController(t, strictConfig(300), em)
	_, err := c.UpdateConfig(func(cfg humanoid.Config) (humanoid.Config, error) {
		cfg.Newline = humanoid.NewlineRemove
		return cfg, nil
	})
	require.NoError(t, err)

	st, err := c.Start(context.Background(), "a\nb")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	waitIdle(t, c)
	assert.Equal(t, "ab", em.text.String())
}

func TestController_CodeModeKeepsLineBreaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	cfg := strictConfig(300)
	cfg.CodeMode = true
	c := newTestController(t, cfg, em)

	_, err := c.Start(context.Background(), "if x {\r\n\treturn\r\n}")
	require.NoError(t, err)
	waitIdle(t, c)
	assert.Equal(t, "if x {\nreturn\n}", em.text.String())
}

// -- Failure handling --

func TestController_EmissionFailuresAreSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	em.fail = func(k keyboard.Key) error {
		if k.Rune == 'b' {
			return errors.New("device unavailable")
		}
		return nil
	}
	obs := &countingObserver{}
	c := newTestController(t, strictConfig(300), em, WithObserver(obs))

	_, err := c.Start(context.Background(), "abcb")
	require.NoError(t, err)
	waitIdle(t, c)

	st := c.Status()
	assert.Equal(t, 4, st.Typed)
	assert.Equal(t, 2, st.EmissionFailures)
	assert.Equal(t, OutcomeCompleted, st.Outcome)
	assert.Equal(t, "ac", em.text.String())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.failures)
}

func TestController_PanicReturnsToIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := keyboard.EmitterFunc(func(context.Context, keyboard.Key, time.Duration) error {
		panic("driver crashed")
	})
	c := newTestController(t, strictConfig(300), em)

	_, err := c.Start(context.Background(), "abc")
	require.NoError(t, err)
	waitIdle(t, c)

	st := c.Status()
	assert.False(t, st.Running)
	assert.Equal(t, OutcomeFailed, st.Outcome)

	// The controller is usable again.
	_, err = c.Start(context.Background(), "x")
	require.NoError(t, err)
	waitIdle(t, c)
}

// -- Typos --

func TestController_TyposAreCorrected(t *testing.T) {
	defer goleak.VerifyNone(t)

	em := newRecordingEmitter()
	cfg := humanoid.DefaultConfig()
	cfg.WPM = 300
	cfg.Typos = true
	cfg.MistakePct = humanoid.MaxMistakePct
	cfg.MaxConsecutive = 1
	cfg.ThinkPct = 0
	cfg.LongPause = false
	c := newTestController(t, cfg, em)

	text := strings.Repeat("asdf", 10)
	_, err := c.Start(context.Background(), text)
	require.NoError(t, err)
	waitIdle(t, c)

	st := c.Status()
	assert.Equal(t, text, em.text.String())
	assert.Equal(t, len(text), st.Typed)
	assert.Greater(t, st.TypoCount, 0)
	// Each typo costs a wrong key and a backspace on top of the text.
	assert.Equal(t, len(text)+2*st.TypoCount, em.text.Keystrokes())
}

// -- Configuration and calibration --

func TestController_UpdateConfigIsAtomic(t *testing.T) {
	c := newTestController(t, humanoid.DefaultConfig(), newRecordingEmitter())
	before := c.Config()

	_, err := c.UpdateConfig(func(cfg humanoid.Config) (humanoid.Config, error) {
		cfg.WPM = 200
		cfg.LongPauseMinMs = 5000
		cfg.LongPauseMaxMs = 1000
		return cfg, nil
	})
	require.ErrorIs(t, err, humanoid.ErrInvalidConfig)
	assert.Equal(t, before, c.Config())

	assert.Equal(t, humanoid.MaxWPM, c.SetWPM(1000))
	assert.Equal(t, humanoid.MinWPM, c.SetWPM(1))
	assert.Equal(t, 95, c.SetWPM(95))
	assert.Equal(t, 95, c.Status().WPM)
}

func TestController_Calibrate(t *testing.T) {
	c := newTestController(t, humanoid.DefaultConfig(), newRecordingEmitter())

	_, err := c.Calibrate(humanoid.Samples{HoldTimes: []float64{80}, FlightTimes: []float64{150}})
	require.ErrorIs(t, err, humanoid.ErrInsufficientData)
	assert.False(t, c.Status().Calibrated)
	assert.Nil(t, c.Status().BaseWPM)

	hold := make([]float64, 10)
	flight := make([]float64, 10)
	for i := range hold {
		hold[i], flight[i] = 80, 150
	}
	p, err := c.Calibrate(humanoid.Samples{HoldTimes: hold, FlightTimes: flight})
	require.NoError(t, err)
	assert.InDelta(t, 80.0, p.BaseWPM, 1e-9)

	st := c.Status()
	assert.True(t, st.Calibrated)
	require.NotNil(t, st.BaseWPM)
	assert.Equal(t, 80.0, *st.BaseWPM)
	assert.True(t, c.Profile().Calibrated)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := humanoid.DefaultConfig()
	cfg.Model = "teleprinter"
	_, err := New(newRecordingEmitter(), cfg, nil)
	assert.ErrorIs(t, err, humanoid.ErrInvalidConfig)
}
