package xpool

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

func newTestLogger(t *testing.T) (xlog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf syncBuffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, &buf.buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestNew_InvalidArgs(t *testing.T) {
	tests := []struct {
		name      string
		workers   int
		queueSize int
		wantErr   error
	}{
		{"零worker", 0, 10, ErrInvalidWorkers},
		{"过多worker", maxWorkers + 1, 10, ErrInvalidWorkers},
		{"零队列", 1, 0, ErrInvalidQueueSize},
		{"过大队列", 1, maxQueueSize + 1, ErrInvalidQueueSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.workers, tt.queueSize)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPool_Basic(t *testing.T) {
	pool, err := New(2, 10, WithName("basic"))
	require.NoError(t, err)
	assert.Equal(t, "basic", pool.Name())
	assert.Equal(t, 2, pool.Workers())
	assert.Equal(t, SaturationBlock, pool.Saturation())

	var processed atomic.Int32
	for range 5 {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
			processed.Add(1)
		}))
	}
	require.NoError(t, pool.Close())
	assert.Equal(t, int32(5), processed.Load())
}

func TestPool_WorkerOwnsStore(t *testing.T) {
	pool, err := New(1, 4, WithName("w"))
	require.NoError(t, err)

	var (
		stores []*xctx.Store
		names  []string
		mu     sync.Mutex
	)
	for range 3 {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
			mu.Lock()
			defer mu.Unlock()
			stores = append(stores, xctx.StoreFrom(ctx))
			names = append(names, xctx.Get(ctx, xctx.MetaKey(WorkerMetaKey)))
		}))
	}
	require.NoError(t, pool.Close())

	require.Len(t, stores, 3)
	require.NotNil(t, stores[0])
	assert.Same(t, stores[0], stores[1])
	assert.Same(t, stores[1], stores[2])
	assert.Equal(t, []string{"w-0", "w-0", "w-0"}, names)
}

func TestPool_StoreNotClearedBetweenTasks(t *testing.T) {
	pool, err := New(1, 4)
	require.NoError(t, err)

	got := make(chan string, 1)
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		xctx.Put(ctx, xctx.KeyUserID, "stale")
	}))
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		got <- xctx.Get(ctx, xctx.KeyUserID)
	}))
	require.NoError(t, pool.Close())
	assert.Equal(t, "stale", <-got)
}

func TestPool_SaturationReject(t *testing.T) {
	pool, err := New(1, 1, WithSaturation(SaturationReject))
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {}))
	assert.Equal(t, 1, pool.Pending())

	err = pool.Submit(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, pool.Close())
}

func TestPool_SaturationBlock(t *testing.T) {
	pool, err := New(1, 1)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {}))

	// 队列已满，ctx 超时前一直阻塞
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = pool.Submit(ctx, func(context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 释放后阻塞的提交能够完成
	var ran atomic.Bool
	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.Submit(context.Background(), func(context.Context) { ran.Store(true) })
	}()
	close(release)
	require.NoError(t, <-submitted)
	require.NoError(t, pool.Close())
	assert.True(t, ran.Load())
}

func TestPool_SubmitErrors(t *testing.T) {
	pool, err := New(1, 1)
	require.NoError(t, err)

	//nolint:staticcheck // 测试 nil context
	assert.ErrorIs(t, pool.Submit(nil, func(context.Context) {}), ErrNilContext)
	assert.ErrorIs(t, pool.Submit(context.Background(), nil), ErrNilTask)

	require.NoError(t, pool.Close())
	assert.ErrorIs(t, pool.Submit(context.Background(), func(context.Context) {}), ErrPoolStopped)
	// 重复关闭是安全的
	assert.NoError(t, pool.Close())
}

func TestPool_PanicRecovered(t *testing.T) {
	logger, buf := newTestLogger(t)
	pool, err := New(1, 4, WithLogger(logger), WithName("panicky"))
	require.NoError(t, err)

	var after atomic.Bool
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		panic("boom")
	}))
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		after.Store(true)
	}))
	require.NoError(t, pool.Close())

	assert.True(t, after.Load(), "worker 应在 panic 后继续执行")
	assert.Equal(t, uint64(1), pool.Panics())
	out := buf.String()
	assert.Contains(t, out, "task panic recovered")
	assert.Contains(t, out, `"pool":"panicky"`)
	assert.Contains(t, out, `"meta.worker":"panicky-0"`)
}

func TestPool_ShutdownTimeout(t *testing.T) {
	pool, err := New(1, 1)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = pool.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(release)
	select {
	case <-pool.Done():
	case <-time.After(time.Second):
		t.Fatal("workers did not exit")
	}
	//nolint:staticcheck // 测试 nil context
	assert.ErrorIs(t, pool.Shutdown(nil), ErrNilContext)
}

func TestPool_ConcurrentSubmitAndClose(t *testing.T) {
	pool, err := New(4, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				err := pool.Submit(context.Background(), func(context.Context) {})
				if err != nil {
					assert.ErrorIs(t, err, ErrPoolStopped)
					return
				}
			}
		}()
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, pool.Close())
	wg.Wait()
}

func TestParseSaturation(t *testing.T) {
	tests := []struct {
		in      string
		want    Saturation
		wantErr bool
	}{
		{"", SaturationBlock, false},
		{"block", SaturationBlock, false},
		{" Reject ", SaturationReject, false},
		{"drop", SaturationBlock, true},
	}
	for _, tt := range tests {
		got, err := ParseSaturation(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownSaturation)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		back, err := ParseSaturation(got.String())
		require.NoError(t, err)
		assert.Equal(t, got, back)
	}
}
