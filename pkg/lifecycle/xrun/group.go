package xrun

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// Group 基于 errgroup 管理多个服务的并发运行和协调关闭。
//
// 任一服务返回错误或 Cancel 被调用时，所有服务的 ctx 被取消。
// GoWithName 启动的服务拥有独立的 xctx.Store（meta.service=<name>），
// 服务内部写日志时可据此区分来源。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 ctx 在任一服务出错或 Cancel 后被取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     o,
	}, egCtx
}

// Go 启动 fn，fn 返回非 nil 错误时取消整个 Group。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，额外为服务准备独立 Store 并记录启停日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		store := xctx.NewStore()
		store.Put(xctx.MetaKey(ServiceMetaKey), name)
		ctx, err := xctx.WithStore(g.ctx, store)
		if err != nil {
			return err
		}

		g.opts.logger.Debug(ctx, "service starting", slog.String("group", g.opts.name))
		err = fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(ctx, "service exited with error",
				slog.String("group", g.opts.name),
				xlog.Err(err),
			)
		} else {
			g.opts.logger.Debug(ctx, "service stopped", slog.String("group", g.opts.name))
		}
		return err
	})
}

// Wait 等待所有服务退出。
//
// 返回第一个非取消类错误；若 Group 是通过 Cancel(cause) 或信号关闭的，返回该 cause；
// 普通取消返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug(context.Background(), "all services stopped", slog.String("group", g.opts.name))

	if errors.Is(err, context.Canceled) {
		// causeCtx 未取消说明 Canceled 来自服务内部，原样返回
		if g.causeCtx.Err() == nil {
			return err
		}
		return g.explicitCause()
	}
	if err == nil && g.causeCtx.Err() != nil {
		return g.explicitCause()
	}
	return err
}

func (g *Group) explicitCause() error {
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 主动关闭 Group，cause 将由 Wait 返回。
//
// cause 不应包装 context.Canceled，否则会被视为普通取消。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}
