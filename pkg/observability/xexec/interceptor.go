package xexec

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/observability/xmask"
)

const (
	// DefaultSlowThreshold 默认慢调用阈值
	DefaultSlowThreshold = 800 * time.Millisecond

	// DefaultMaxContentLength 参数与返回值渲染的默认最大字符数
	DefaultMaxContentLength = 1000
)

// Option 拦截器选项
type Option func(*Interceptor)

// WithRegistry 设置标记表，nil 忽略
func WithRegistry(r *Registry) Option {
	return func(ic *Interceptor) {
		if r != nil {
			ic.registry = r
		}
	}
}

// WithSink 设置事件接收端，nil 忽略
func WithSink(s Sink) Option {
	return func(ic *Interceptor) {
		if s != nil {
			ic.sink = s
		}
	}
}

// WithMasker 设置参数与返回值的脱敏器，nil 忽略
func WithMasker(m *xmask.Masker) Option {
	return func(ic *Interceptor) {
		if m != nil {
			ic.masker = m
		}
	}
}

// WithSlowThreshold 设置慢调用阈值，<= 0 忽略
func WithSlowThreshold(d time.Duration) Option {
	return func(ic *Interceptor) {
		ic.SetSlowThreshold(d)
	}
}

// WithMaxContentLength 设置渲染内容的最大字符数，<= 0 表示不截断
func WithMaxContentLength(n int) Option {
	return func(ic *Interceptor) {
		ic.maxLen = n
	}
}

// Interceptor 调用拦截器。
//
// 对 Registry 中有标记的调用，每次调用恰好产生一个 Event；
// 没有标记的调用直接透传。拦截器不修改返回值与错误，panic 记录后原样重新抛出。
type Interceptor struct {
	registry *Registry
	sink     Sink
	masker   *xmask.Masker
	maxLen   int
	slow     atomic.Int64
}

// New 创建拦截器。默认：空标记表、写入 xlog.Default() 的 LoggerSink、xmask.Default()
func New(opts ...Option) *Interceptor {
	ic := &Interceptor{
		registry: NewRegistry(),
		masker:   xmask.Default(),
		maxLen:   DefaultMaxContentLength,
	}
	ic.slow.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		if opt != nil {
			opt(ic)
		}
	}
	if ic.sink == nil {
		ic.sink = NewLoggerSink(nil)
	}
	return ic
}

// Registry 返回标记表
func (ic *Interceptor) Registry() *Registry { return ic.registry }

// SlowThreshold 返回当前慢调用阈值
func (ic *Interceptor) SlowThreshold() time.Duration {
	return time.Duration(ic.slow.Load())
}

// SetSlowThreshold 运行时调整慢调用阈值，<= 0 忽略
func (ic *Interceptor) SetSlowThreshold(d time.Duration) {
	if d > 0 {
		ic.slow.Store(int64(d))
	}
}

// =============================================================================
// 调用
// =============================================================================

// Invoke 拦截一次调用。
//
// 流程：解析标记 → 确保 correlation_id → 捕获参数 → 计时执行 fn →
// 成功/失败分别生成事件 → 恢复调用级上下文键。fn 收到的 ctx 一定携带 Store。
func (ic *Interceptor) Invoke(ctx context.Context, inv Invocation, fn func(context.Context) (any, error)) (result any, err error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if ic == nil {
		return fn(ctx)
	}
	l, ok := ic.registry.Resolve(inv.Type, inv.Method)
	if !ok {
		return fn(ctx)
	}

	ctx, correlationID := xctx.EnsureCorrelationID(ctx)
	store := xctx.StoreFrom(ctx)
	prior := saveInvocationKeys(store)
	defer restoreInvocationKeys(store, prior)

	var args capturedArgs
	if l.LogArgs || l.Message != "" {
		args = captureArgs(inv.Params, l.SensitiveParams, ic.masker, ic.maxLen)
	}

	c := &call{
		ic:            ic,
		l:             l,
		inv:           inv,
		className:     inv.ClassName(),
		correlationID: correlationID,
		args:          args,
		store:         store,
	}
	store.Put(xctx.KeyClass, c.className)
	store.Put(xctx.KeyMethod, inv.Method)
	if l.LogArgs {
		store.Put(xctx.KeyArgs, args.summary)
	}

	c.start = time.Now()
	done := false
	defer func() {
		if done {
			return
		}
		// runtime.Goexit 时 recover 返回 nil，不记录
		r := recover()
		if r == nil {
			return
		}
		c.failure(ctx, panicAsError(r), panicTypeName(r))
		panic(r)
	}()

	result, err = fn(ctx)
	done = true

	if err != nil {
		c.failure(ctx, err, ErrorTypeName(err))
		return result, err
	}
	c.success(ctx, result)
	return result, nil
}

// call 单次调用的状态
type call struct {
	ic            *Interceptor
	l             Loggable
	inv           Invocation
	className     string
	correlationID string
	args          capturedArgs
	store         *xctx.Store
	start         time.Time
}

func (c *call) baseEvent(elapsed time.Duration) Event {
	ev := Event{
		Time:          time.Now(),
		CorrelationID: c.correlationID,
		ClassName:     c.className,
		MethodName:    c.inv.Method,
		DurationMs:    -1,
	}
	if c.l.LogArgs {
		ev.ArgumentsMasked = c.args.summary
	}
	if c.l.LogExecutionTime {
		ev.DurationMs = elapsed.Milliseconds()
		c.store.Put(xctx.KeyExecutionTime, formatMs(elapsed))
	}
	return ev
}

func (c *call) success(ctx context.Context, result any) {
	elapsed := time.Since(c.start)
	ev := c.baseEvent(elapsed)
	ev.Level = c.l.Level
	ev.Slow = c.l.LogExecutionTime && elapsed > c.ic.SlowThreshold()
	ev.Message = successMessage(c.l, c.inv.Method, c.args.values, elapsed, ev.Slow)
	if c.l.LogResult && result != nil {
		ev.Result = xmask.Truncate(c.ic.masker.MaskValue(result), c.ic.maxLen)
	}
	c.ic.emit(ctx, ev)
}

// failure 预期失败 → WARN 无堆栈；其他 → FailureLevel，附带堆栈。
// 在 panic 的 defer 中调用时，堆栈包含 panic 发生处。
func (c *call) failure(ctx context.Context, err error, typeName string) {
	elapsed := time.Since(c.start)
	ev := c.baseEvent(elapsed)
	ev.ExceptionType = typeName
	ev.ErrorCode = ErrorCode(errorKey(err, typeName))
	c.store.Put(xctx.KeyExceptionType, ev.ExceptionType)
	c.store.Put(xctx.KeyErrorCode, ev.ErrorCode)

	if IsExpected(err) {
		ev.Level = xlog.LevelWarn
	} else {
		ev.Level = c.l.FailureLevel
		if c.l.LogErrors {
			ev.Stack = string(debug.Stack())
		}
	}
	ev.Message = failureMessage(c.l, c.inv.Method, c.args.values, elapsed, c.ic.masker.MaskText(err.Error()))
	c.ic.emit(ctx, ev)
}

// emit 隔离 Sink 的 panic，拦截器对业务保持透明
func (ic *Interceptor) emit(ctx context.Context, ev Event) {
	defer func() {
		_ = recover()
	}()
	ic.sink.Emit(ctx, ev)
}

// =============================================================================
// 调用级上下文键
// =============================================================================

// saveInvocationKeys 记录外层调用的调用级键，嵌套调用结束时恢复
func saveInvocationKeys(s *xctx.Store) map[string]string {
	var prior map[string]string
	for _, k := range xctx.InvocationKeys() {
		if v, ok := s.Get(k); ok {
			if prior == nil {
				prior = make(map[string]string, 6)
			}
			prior[k] = v
		}
	}
	return prior
}

// restoreInvocationKeys 移除本次调用写入的调用级键；嵌套时还原外层的值。correlation_id 不受影响。
func restoreInvocationKeys(s *xctx.Store, prior map[string]string) {
	for _, k := range xctx.InvocationKeys() {
		if v, ok := prior[k]; ok {
			s.Put(k, v)
		} else {
			s.Remove(k)
		}
	}
}

// =============================================================================
// 泛型辅助
// =============================================================================

// Call 拦截返回 T 的调用
func Call[T any](ctx context.Context, ic *Interceptor, inv Invocation, fn func(context.Context) (T, error)) (T, error) {
	var out T
	if fn == nil {
		return out, ErrNilFunc
	}
	_, err := ic.Invoke(ctx, inv, func(c context.Context) (any, error) {
		v, err := fn(c)
		out = v
		return v, err
	})
	return out, err
}

// Do 拦截只返回 error 的调用
func Do(ctx context.Context, ic *Interceptor, inv Invocation, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := ic.Invoke(ctx, inv, func(c context.Context) (any, error) {
		return nil, fn(c)
	})
	return err
}
