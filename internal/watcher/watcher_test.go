package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobrano/briefbot/internal/config"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "briefbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  whitelist: [1]\n"), 0644))

	changes := make(chan *config.Config, 4)
	w, err := New(path, config.Load, func(cfg *config.Config) { changes <- cfg })
	require.NoError(t, err)
	w.debounceTime = 20 * time.Millisecond
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  whitelist: [1, 2]\n"), 0644))

	select {
	case cfg := <-changes:
		assert.Equal(t, []int64{1, 2}, cfg.Telegram.Whitelist)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not delivered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "briefbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0644))

	changes := make(chan *config.Config, 4)
	w, err := New(path, config.Load, func(cfg *config.Config) { changes <- cfg })
	require.NoError(t, err)
	w.debounceTime = 20 * time.Millisecond
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0644))

	select {
	case <-changes:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_KeepsPreviousOnLoadError(t *testing.T) {
	called := false
	w := &Watcher{
		path:     "/nonexistent/briefbot.yaml",
		load:     func(string) (*config.Config, error) { return nil, errors.New("bad yaml") },
		onChange: func(*config.Config) { called = true },
	}

	w.reload()

	assert.False(t, called)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	calls := make(chan struct{}, 8)
	w := &Watcher{
		path:         "/cfg.yaml",
		load:         func(string) (*config.Config, error) { return config.Default(), nil },
		onChange:     func(*config.Config) { calls <- struct{}{} },
		debounceTime: 50 * time.Millisecond,
		done:         make(chan struct{}),
	}
	go w.debounceLoop()
	defer close(w.done)

	for i := 0; i < 5; i++ {
		w.scheduleReload()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after burst")
	}
	select {
	case <-calls:
		t.Fatal("burst produced more than one reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "c.yaml"), nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
