// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/observability"
)

// fastConfig types at the top rate with strict pacing so sessions finish
// quickly and deterministically.
const fastConfig = `
logger:
  level: warn
server:
  listen_addr: "127.0.0.1:0"
  status_interval: 50ms
  shutdown_timeout: 2s
emitter:
  backend: log
typing:
  wpm: 300
  strict: true
  newline_mode: keep
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes a fresh command tree and returns stdout and stderr.
func run(t *testing.T, ctx context.Context, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// -- Root and Version --

func TestVersion(t *testing.T) {
	out, _, err := run(t, context.Background(), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "humantype "+Version)

	out, _, err = run(t, context.Background(), "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "humantype version "+Version+"\n", out)
}

func TestRoot_ConfigErrors(t *testing.T) {
	t.Run("missing explicit config file", func(t *testing.T) {
		_, _, err := run(t, context.Background(), "x", "type", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--dry-run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid typing section", func(t *testing.T) {
		cfg := writeFile(t, "config.yaml", fastConfig+"  model: robot\n")
		_, _, err := run(t, context.Background(), "x", "type", "--config", cfg, "--dry-run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

// -- Type --

func TestType_DryRun(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastConfig)

	t.Run("from file", func(t *testing.T) {
		input := writeFile(t, "input.txt", "hello world")
		out, _, err := run(t, context.Background(), "", "type", "--config", cfg, "--dry-run", input)
		require.NoError(t, err)
		assert.Equal(t, "hello world", out)
	})

	t.Run("from stdin", func(t *testing.T) {
		out, _, err := run(t, context.Background(), "line one\nline two", "type", "--config", cfg, "--dry-run", "-")
		require.NoError(t, err)
		assert.Equal(t, "line one\nline two", out)
	})

	t.Run("flags override the file", func(t *testing.T) {
		// Non-strict pacing with typos on still ends with the intended text.
		out, _, err := run(t, context.Background(), "corrected", "type", "--config", cfg,
			"--dry-run", "--strict=false", "--typos", "--model", "drift")
		require.NoError(t, err)
		assert.Equal(t, "corrected", out)
	})

	t.Run("with calibration", func(t *testing.T) {
		samples := `{"holdTimes":[60,62,64,66,68,70,72,74,76,78],` +
			`"flightTimes":[40,42,44,46,48,50,52,54,56,58],"digraphs":{"ab":30}}`
		calibration := writeFile(t, "calibration.json", samples)
		out, _, err := run(t, context.Background(), "abc", "type", "--config", cfg,
			"--dry-run", "--strict=false", "--typos=false", "--model", "human", "--calibration", calibration)
		require.NoError(t, err)
		assert.Equal(t, "abc", out)
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := run(t, context.Background(), "", "type", "--config", cfg, "--dry-run")
		require.Error(t, err)
	})
}

func TestType_InsufficientCalibration(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastConfig)
	calibration := writeFile(t, "calibration.json", `{"holdTimes":[1,2],"flightTimes":[1,2]}`)

	_, _, err := run(t, context.Background(), "abc", "type", "--config", cfg, "--dry-run", "--calibration", calibration)
	require.Error(t, err)
	assert.ErrorIs(t, err, humanoid.ErrInsufficientData)
}

func TestType_UnknownBackend(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastConfig)

	_, _, err := run(t, context.Background(), "abc", "type", "--config", cfg, "--backend", "carrier-pigeon", "--delay", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestType_CountdownHonorsCancel(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastConfig)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stderr, err := run(t, ctx, "abc", "type", "--config", cfg, "--delay", "1h")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, stderr, "Typing starts in")
}

// -- Serve --

func TestServe_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	cfg := writeFile(t, "config.yaml", fastConfig)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, _, err := run(t, ctx, "", "serve", "--config", cfg)
		errc <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastConfig)

	_, _, err := run(t, context.Background(), "", "serve", "--config", cfg, "--listen", "256.0.0.1:bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}
