package xrun

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T) (xlog.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	logger, cleanup, err := xlog.New().SetOutput(buf).SetFormat("json").SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, buf
}

// =============================================================================
// Group
// =============================================================================

func TestGroup_ErrorCancelsOthers(t *testing.T) {
	g, _ := NewGroup(context.Background())
	boom := errors.New("boom")

	var cancelled atomic.Bool
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	g.Go(func(context.Context) error { return boom })

	assert.ErrorIs(t, g.Wait(), boom)
	assert.True(t, cancelled.Load())
}

func TestGroup_CancelCause(t *testing.T) {
	g, _ := NewGroup(context.Background())
	stop := errors.New("stop requested")
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.Cancel(stop)
	assert.ErrorIs(t, g.Wait(), stop)
}

func TestGroup_PlainCancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(ctx)
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	assert.NoError(t, g.Wait())
}

func TestGroup_InternalCanceledKept(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, g.Wait(), context.Canceled)
}

func TestGroup_NilFuncAndNilContext(t *testing.T) {
	//nolint:staticcheck // nil ctx 归一化
	g, ctx := NewGroup(nil, nil)
	require.NotNil(t, ctx)
	g.Go(nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestGroup_GoWithNameSeedsStore(t *testing.T) {
	logger, buf := newTestLogger(t)
	g, _ := NewGroup(context.Background(), WithLogger(logger), WithName("diag"))

	var seen string
	g.GoWithName("http", func(ctx context.Context) error {
		seen = xctx.Get(ctx, xctx.MetaKey(ServiceMetaKey))
		return errors.New("bind failed")
	})
	require.Error(t, g.Wait())

	assert.Equal(t, "http", seen)
	out := buf.String()
	assert.Contains(t, out, `"meta.service":"http"`)
	assert.Contains(t, out, "service exited with error")
	assert.Contains(t, out, `"group":"diag"`)
}

// =============================================================================
// 信号
// =============================================================================

func TestRun_Signal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)
	logger, buf := newTestLogger(t)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []Option{WithLogger(logger)}, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSignal)
		var sigErr *SignalError
		require.ErrorAs(t, err, &sigErr)
		assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after signal")
	}
	assert.Contains(t, buf.String(), "received signal")
}

func TestRun_WithoutSignalHandler(t *testing.T) {
	err := Run(context.Background(), []Option{WithoutSignalHandler()},
		func(context.Context) error { return nil },
	)
	assert.NoError(t, err)
}

func TestRunServices_NamedAndNil(t *testing.T) {
	var ran atomic.Bool
	err := RunServices(context.Background(), []Option{WithoutSignalHandler()},
		Named("ok", ServiceFunc(func(ctx context.Context) error {
			ran.Store(xctx.Get(ctx, xctx.MetaKey(ServiceMetaKey)) == "ok")
			return nil
		})),
		nil,
	)
	assert.ErrorIs(t, err, ErrNilService)
	assert.True(t, ran.Load())

	assert.ErrorIs(t, Named("empty", nil).Run(context.Background()), ErrNilService)
}

func TestSignalError(t *testing.T) {
	assert.Equal(t, "received signal <nil>", (&SignalError{}).Error())
	err := &SignalError{Signal: syscall.SIGINT}
	assert.Equal(t, "received signal interrupt", err.Error())
	assert.ErrorIs(t, err, ErrSignal)
}

// =============================================================================
// HTTPServer / Drain
// =============================================================================

type mockHTTPServer struct {
	listenCh       chan struct{}
	closeOnce      sync.Once
	listenErr      error
	shutdownErr    error
	shutdownCalled atomic.Bool
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{listenCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.listenCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCalled.Store(true)
	m.closeOnce.Do(func() { close(m.listenCh) })
	return m.shutdownErr
}

func TestHTTPServer_ShutdownOnCancel(t *testing.T) {
	srv := newMockHTTPServer()
	srv.shutdownErr = errors.New("shutdown error")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- HTTPServer(srv, time.Second)(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.EqualError(t, err, "shutdown error")
		assert.True(t, srv.shutdownCalled.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("HTTPServer did not stop")
	}
}

func TestHTTPServer_ListenError(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("address in use")
	err := HTTPServer(srv, 0)(context.Background())
	assert.EqualError(t, err, "address in use")
	assert.False(t, srv.shutdownCalled.Load())
}

func TestHTTPServer_ExternalClose(t *testing.T) {
	srv := newMockHTTPServer()
	srv.closeOnce.Do(func() { close(srv.listenCh) })
	assert.NoError(t, HTTPServer(srv, 0)(context.Background()))
}

func TestHTTPServer_Nil(t *testing.T) {
	assert.ErrorIs(t, HTTPServer(nil, 0)(context.Background()), ErrNilServer)
}

func TestDrain(t *testing.T) {
	var deadline atomic.Bool
	shutdown := func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadline.Store(ok)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, Drain(shutdown, time.Second)(ctx))
	assert.True(t, deadline.Load())

	assert.ErrorIs(t, Drain(nil, 0)(ctx), ErrNilFunc)
}
