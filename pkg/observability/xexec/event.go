package xexec

import (
	"context"
	"log/slog"
	"time"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// KeyResult 返回值渲染在日志中的 key
const KeyResult = "result"

// Event 一次调用产生的结构化日志事件，创建后不再修改
type Event struct {
	Time            time.Time
	Level           xlog.Level
	CorrelationID   string
	ClassName       string
	MethodName      string
	Message         string
	ArgumentsMasked string
	Result          string
	DurationMs      int64
	Slow            bool
	ExceptionType   string
	ErrorCode       string
	// Stack 仅在非预期失败时非空
	Stack string
}

// Failed 是否为失败事件
func (e Event) Failed() bool { return e.ExceptionType != "" }

// Attrs 返回事件的日志属性（不含 Message 与 Level）
func (e Event) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 9)
	attrs = append(attrs,
		slog.String(xctx.KeyCorrelationID, e.CorrelationID),
		slog.String(xctx.KeyClass, e.ClassName),
		slog.String(xctx.KeyMethod, e.MethodName),
	)
	if e.ArgumentsMasked != "" {
		attrs = append(attrs, slog.String(xctx.KeyArgs, e.ArgumentsMasked))
	}
	if e.Result != "" {
		attrs = append(attrs, slog.String(KeyResult, e.Result))
	}
	if e.DurationMs >= 0 {
		attrs = append(attrs, slog.Int64(xctx.KeyDurationMs, e.DurationMs))
	}
	if e.ExceptionType != "" {
		attrs = append(attrs,
			slog.String(xctx.KeyExceptionType, e.ExceptionType),
			slog.String(xctx.KeyErrorCode, e.ErrorCode),
		)
	}
	if e.Stack != "" {
		attrs = append(attrs, slog.String(xlog.KeyStack, e.Stack))
	}
	return attrs
}

// =============================================================================
// Sink
// =============================================================================

// Sink 事件接收端。Emit 在业务调用返回前同步执行，应保持轻量。
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc 函数适配器
type SinkFunc func(ctx context.Context, ev Event)

// Emit 实现 Sink
func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// LoggerSink 把事件写入 xlog.Logger
type LoggerSink struct {
	Logger xlog.Logger
}

// NewLoggerSink 创建 LoggerSink，l 为 nil 时使用 xlog.Default()
func NewLoggerSink(l xlog.Logger) LoggerSink {
	if l == nil {
		l = xlog.Default()
	}
	return LoggerSink{Logger: l}
}

// Emit 实现 Sink
func (s LoggerSink) Emit(ctx context.Context, ev Event) {
	l := s.Logger
	if l == nil {
		l = xlog.Default()
	}
	l.Log(ctx, ev.Level, ev.Message, ev.Attrs()...)
}

// MultiSink 依次投递到多个 Sink
type MultiSink []Sink

// Emit 实现 Sink
func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}
