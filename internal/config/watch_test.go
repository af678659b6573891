// internal/config/watch_test.go
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// startWatch runs Watch until the test ends and collects every reload. The
// watcher is stopped in a cleanup, so leak checks must be registered first.
func startWatch(t *testing.T, path string) func() []*Config {
	t.Helper()
	var (
		mu      sync.Mutex
		reloads []*Config
	)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, path, zaptest.NewLogger(t), func(c *Config) {
			mu.Lock()
			reloads = append(reloads, c)
			mu.Unlock()
		})
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})
	return func() []*Config {
		mu.Lock()
		defer mu.Unlock()
		return append([]*Config(nil), reloads...)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	path := writeConfig(t, t.TempDir(), "typing:\n  wpm: 60\n")
	reloads := startWatch(t, path)

	// The watcher may not be registered yet, so keep rewriting until a
	// reload with the new value shows up.
	assert.Eventually(t, func() bool {
		writeConfig(t, filepath.Dir(path), "typing:\n  wpm: 140\n")
		for _, c := range reloads() {
			if c.Typing().WPM == 140 {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_IgnoresInvalidReload(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	path := writeConfig(t, dir, "typing:\n  wpm: 60\n")
	reloads := startWatch(t, path)

	for i := 0; i < 5; i++ {
		writeConfig(t, dir, fmt.Sprintf("typing:\n  model: robot%d\n", i))
		time.Sleep(20 * time.Millisecond)
	}
	assert.Eventually(t, func() bool {
		writeConfig(t, dir, "typing:\n  wpm: 90\n")
		got := reloads()
		return len(got) > 0 && got[len(got)-1].Typing().WPM == 90
	}, 5*time.Second, 50*time.Millisecond)

	for _, c := range reloads() {
		assert.Equal(t, "drift", c.Typing().Model)
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	path := writeConfig(t, dir, "typing:\n  wpm: 60\n")
	reloads := startWatch(t, path)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
		time.Sleep(20 * time.Millisecond)
	}
	assert.Empty(t, reloads())
}
