package xlog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

// errorHandler 总是返回错误的 Handler
type errorHandler struct {
	err error
}

func (h *errorHandler) Handle(context.Context, slog.Record) error { return h.err }
func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h *errorHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *errorHandler) WithGroup(string) slog.Handler             { return h }

func newErrorLogger(onError func(error)) *xlogger {
	return &xlogger{
		handler:  &errorHandler{err: errors.New("disk full")},
		levelVar: new(slog.LevelVar),
		failures: newFailures(onError),
	}
}

func TestXlogger_HandleError(t *testing.T) {
	var calls atomic.Int32
	l := newErrorLogger(func(error) { calls.Add(1) })

	l.Info(context.Background(), "x")
	l.Log(context.Background(), LevelFatal, "y")

	if calls.Load() != 2 {
		t.Errorf("onError calls = %d, want 2", calls.Load())
	}
	if l.failures.Count() != 2 {
		t.Errorf("failure count = %d, want 2", l.failures.Count())
	}
}

func TestXlogger_OnErrorPanicIsolated(t *testing.T) {
	l := newErrorLogger(func(error) { panic("callback") })

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped: %v", r)
		}
	}()
	l.Error(context.Background(), "x")
	if l.failures.Count() != 2 {
		t.Errorf("failure count = %d, want 2 (write error + callback panic)", l.failures.Count())
	}
}

func TestXlogger_OnErrorNotReentered(t *testing.T) {
	var l *xlogger
	var calls atomic.Int32
	l = newErrorLogger(func(error) {
		calls.Add(1)
		l.Warn(context.Background(), "from callback")
	})

	l.Error(context.Background(), "x")
	if calls.Load() != 1 {
		t.Errorf("onError calls = %d, want 1", calls.Load())
	}
	if l.failures.Count() != 2 {
		t.Errorf("failure count = %d, want 2", l.failures.Count())
	}
}

func TestXlogger_DerivedSharesFailures(t *testing.T) {
	l := newErrorLogger(nil)
	child := l.With(slog.String("k", "v")).(*xlogger)
	child.Warn(context.Background(), "x")
	if l.failures.Count() != 1 {
		t.Errorf("derived logger must share failure count")
	}
	if l.With() != Logger(l) || l.WithGroup("") != Logger(l) {
		t.Errorf("empty With/WithGroup should return receiver")
	}
}

func TestFatalLevel(t *testing.T) {
	tests := []struct {
		in        Level
		want      slog.Level
		wantFatal bool
	}{
		{LevelError, slog.LevelError, false},
		{LevelFatal, slog.Level(LevelFatal), true},
		{LevelFatal + 4, slog.Level(LevelFatal), true},
		{LevelDebug, slog.LevelDebug, false},
	}
	for _, tt := range tests {
		got, fatal := fatalLevel(tt.in)
		if got != tt.want || fatal != tt.wantFatal {
			t.Errorf("fatalLevel(%v) = %v, %v; want %v, %v", tt.in, got, fatal, tt.want, tt.wantFatal)
		}
	}
}

func TestCaptureStack(t *testing.T) {
	s := captureStack()
	if !strings.Contains(s, "TestCaptureStack") {
		t.Errorf("stack missing caller frame: %s", s)
	}
}

func TestChainReplaceAttr(t *testing.T) {
	if chainReplaceAttr(nil, nil) != nil {
		t.Errorf("all-nil chain should be nil")
	}
	upper := func(_ []string, a slog.Attr) slog.Attr { return slog.String(a.Key, a.Value.String()+"!") }
	drop := func(_ []string, _ slog.Attr) slog.Attr { return slog.Attr{} }

	a := chainReplaceAttr(upper, upper)(nil, slog.String("k", "v"))
	if a.Value.String() != "v!!" {
		t.Errorf("chain result = %v", a.Value)
	}
	a = chainReplaceAttr(drop, upper)(nil, slog.String("k", "v"))
	if a.Key != "" {
		t.Errorf("dropped attr must stop the chain")
	}
}
