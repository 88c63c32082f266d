package xlog

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

var (
	_ Logger          = (*xlogger)(nil)
	_ Leveler         = (*xlogger)(nil)
	_ LoggerWithLevel = (*xlogger)(nil)
)

// 堆栈捕获的起始与上限大小
const (
	stackStart = 4 << 10
	stackLimit = 64 << 10
)

// =============================================================================
// 写入失败处理
// =============================================================================

// failures Handler 写入失败的计数与回调，同一 Build 派生出的所有 logger 共享一份。
type failures struct {
	onError func(error)
	count   atomic.Uint64
	// busy 防止 onError 内部再次记日志失败时递归回调
	busy atomic.Bool
}

func newFailures(onError func(error)) *failures {
	return &failures{onError: onError}
}

func (f *failures) report(err error) {
	f.count.Add(1)
	if f.onError == nil || !f.busy.CompareAndSwap(false, true) {
		return
	}
	defer f.busy.Store(false)
	defer func() {
		if recover() != nil {
			f.count.Add(1)
		}
	}()
	f.onError(err)
}

// Count 返回累计的写入失败次数（含回调 panic）。
func (f *failures) Count() uint64 { return f.count.Load() }

// =============================================================================
// xlogger
// =============================================================================

// xlogger Logger 的实现。派生 logger 共享 levelVar 与 failures。
type xlogger struct {
	handler   slog.Handler
	levelVar  *slog.LevelVar
	addSource bool
	failures  *failures
}

// emit 构造并写出一条记录。
//
// withStack 为 true 时追加当前 goroutine 的堆栈；skip 为调用方相对直接调用 emit
// 的公开方法多出的帧数（全局函数为 1）。
//
//go:noinline
func (l *xlogger) emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr, withStack bool, skip int) {
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.addSource {
		var pcs [1]uintptr
		// Callers → emit → Debug/Info/... → 业务代码
		runtime.Callers(3+skip, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	if withStack && !hasAttr(attrs, KeyStack) {
		r.AddAttrs(slog.String(KeyStack, captureStack()))
	}
	if err := l.handler.Handle(ctx, r); err != nil && l.failures != nil {
		l.failures.report(err)
	}
}

// captureStack 返回当前 goroutine 的堆栈，超过 stackLimit 时截断。
func captureStack() string {
	buf := make([]byte, stackStart)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) || len(buf) >= stackLimit {
			return string(buf[:n])
		}
		buf = make([]byte, min(len(buf)*2, stackLimit))
	}
}

func hasAttr(attrs []slog.Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// fatalLevel 归一化 Log 的级别：高于 LevelFatal 的级别按 LevelFatal 记录，
// 返回值第二项表示该记录是否为 FATAL。
func fatalLevel(level Level) (slog.Level, bool) {
	if level >= LevelFatal {
		return slog.Level(LevelFatal), true
	}
	return slog.Level(level), false
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelDebug, msg, attrs, false, 0)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelInfo, msg, attrs, false, 0)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelWarn, msg, attrs, false, 0)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelError, msg, attrs, false, 0)
}

// Log 以任意级别记录日志。
//
// FATAL 记录自动附带堆栈（attrs 已带 stack 时不重复），高于 LevelFatal 的级别
// 统一记为 FATAL。进程不会因此退出。
func (l *xlogger) Log(ctx context.Context, level Level, msg string, attrs ...slog.Attr) {
	lv, fatal := fatalLevel(level)
	l.emit(ctx, lv, msg, attrs, fatal, 0)
}

// Stack 以 Error 级别记录日志并附带当前 goroutine 的堆栈。
func (l *xlogger) Stack(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelError, msg, attrs, true, 0)
}

func (l *xlogger) derive(h slog.Handler) *xlogger {
	return &xlogger{
		handler:   h,
		levelVar:  l.levelVar,
		addSource: l.addSource,
		failures:  l.failures,
	}
}

// With 返回带额外属性的派生 Logger，无属性时返回自身。
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return l.derive(l.handler.WithAttrs(attrs))
}

// WithGroup 返回带分组的派生 Logger，空名称时返回自身。
func (l *xlogger) WithGroup(name string) Logger {
	if name == "" {
		return l
	}
	return l.derive(l.handler.WithGroup(name))
}

func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(slog.Level(level))
}

func (l *xlogger) GetLevel() Level {
	return Level(l.levelVar.Level())
}

func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	return l.handler.Enabled(ctx, slog.Level(level))
}
