package xasync

import (
	"context"
	"log/slog"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/util/xpool"
)

// ErrorHandler 处理异步任务返回的错误。
//
// ctx 为任务执行期间的 ctx，其 Store 内容为提交方快照，日志可关联到原请求。
type ErrorHandler func(ctx context.Context, err error)

// Option Executor 可选参数
type Option func(*Executor)

// WithLogger 设置默认错误处理使用的 Logger，nil 时使用 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithErrorHandler 替换默认错误处理（默认以 Error 级别记录日志）
func WithErrorHandler(h ErrorHandler) Option {
	return func(e *Executor) {
		e.onError = h
	}
}

// Executor 将任务包装后提交到 xpool.Pool，使提交方的上下文在 worker 上可见
type Executor struct {
	pool    *xpool.Pool
	logger  xlog.Logger
	onError ErrorHandler
}

// NewExecutor 基于 pool 创建 Executor，Executor 持有 pool 的关闭权
func NewExecutor(pool *xpool.Pool, opts ...Option) (*Executor, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	e := &Executor{pool: pool}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = xlog.Default()
	}
	if e.onError == nil {
		e.onError = e.logError
	}
	return e, nil
}

func (e *Executor) logError(ctx context.Context, err error) {
	e.logger.Error(ctx, "xasync: task failed",
		slog.String("pool", e.pool.Name()),
		xlog.Err(err),
	)
}

// Submit 捕获 ctx 的快照并提交任务。
//
// 返回值为提交结果（xpool.ErrQueueFull、xpool.ErrPoolStopped、ctx 错误等），
// 任务自身的错误交给 ErrorHandler。
func (e *Executor) Submit(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	task := Wrap(ctx, func(c context.Context) error {
		err := fn(c)
		if err != nil {
			e.onError(c, err)
		}
		return err
	})
	return e.pool.Submit(ctx, func(workerCtx context.Context) {
		_ = task.RunOn(workerCtx) //nolint:errcheck // 已由 onError 处理
	})
}

// Pool 返回底层任务池
func (e *Executor) Pool() *xpool.Pool { return e.pool }

// Close 关闭底层任务池并等待已提交任务完成
func (e *Executor) Close() error { return e.pool.Close() }

// Shutdown 在 ctx 期限内关闭底层任务池
func (e *Executor) Shutdown(ctx context.Context) error { return e.pool.Shutdown(ctx) }
