package xconf

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_FromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a: 1"), FormatYAML)
	require.NoError(t, err)
	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNotReloadable)
}

func TestWatchSettings_Reload(t *testing.T) {
	path := createTempFile(t, "xdiag.yaml", "log:\n  level: info\n")
	_, cfg, err := LoadSettings(path)
	require.NoError(t, err)

	type result struct {
		s   Settings
		err error
	}
	results := make(chan result, 8)
	w, err := WatchSettings(cfg, func(s Settings, err error) {
		results <- result{s, err}
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	w.StartAsync()
	t.Cleanup(func() { assert.NoError(t, w.Stop()) })

	// 一次写入可能触发多次回调，读到满足条件的结果为止
	waitFor := func(match func(result) bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case r := <-results:
				if match(r) {
					return
				}
			case <-deadline:
				t.Fatal("no matching reload callback")
			}
		}
	}

	// 等待 watcher 就绪
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0600))
	waitFor(func(r result) bool { return r.err == nil && r.s.Log.Level == "debug" })

	// 校验失败的配置通过 err 通知
	require.NoError(t, os.WriteFile(path, []byte("async:\n  saturation: drop\n"), 0600))
	waitFor(func(r result) bool { return errors.Is(r.err, ErrInvalidSettings) })
}

func TestWatcher_StopIdempotent(t *testing.T) {
	path := createTempFile(t, "c.yaml", "a: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, nil)
	require.NoError(t, err)
	w.StartAsync()
	w.StartAsync()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Stop 之后不再启动
	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start after Stop should return immediately")
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	path := createTempFile(t, "r.yaml", "a: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)
	w, err := Watch(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// 已停止的 watcher 再次 Run 立即返回
	assert.NoError(t, w.Run(context.Background()))
}
