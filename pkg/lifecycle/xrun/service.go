package xrun

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Service 可由 RunServices 统一管理的服务。
//
// Run 阻塞直到 ctx 取消或出错；ctx 取消后应优雅退出。
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc 将函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service。
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// NamedService 带名称的服务，RunServices 以 GoWithName 启动它。
type NamedService struct {
	Name    string
	Service Service
}

// Named 构造 NamedService。
func Named(name string, svc Service) NamedService {
	return NamedService{Name: name, Service: svc}
}

// Run 实现 Service。
func (n NamedService) Run(ctx context.Context) error {
	if n.Service == nil {
		return ErrNilService
	}
	return n.Service.Run(ctx)
}

func runGroup(ctx context.Context, opts []Option, setup func(g *Group)) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.watchSignals()
	}
	setup(g)
	return g.Wait()
}

// Run 监听信号并运行 services，收到信号时返回 *SignalError。
func Run(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			g.Go(svc)
		}
	})
}

// RunServices 与 Run 相同，接收 Service。NamedService 会带名称启动。
//
//	err := xrun.RunServices(ctx, opts,
//	    xrun.Named("http", xrun.ServiceFunc(xrun.HTTPServer(srv, 10*time.Second))),
//	    xrun.Named("config-watch", watcher),
//	)
func RunServices(ctx context.Context, opts []Option, services ...Service) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			switch s := svc.(type) {
			case nil:
				g.Go(func(context.Context) error { return ErrNilService })
			case NamedService:
				g.GoWithName(s.Name, s.Run)
			default:
				g.Go(svc.Run)
			}
		}
	})
}

// =============================================================================
// 常见服务封装
// =============================================================================

// HTTPServerInterface *http.Server 满足此接口。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将 http.Server 包装为支持优雅关闭的服务函数。
//
// shutdownTimeout <= 0 表示 Shutdown 无超时。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErrCh := make(chan error, 1)
		listenDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				shutdownErrCh <- shutdownWithTimeout(server.Shutdown, shutdownTimeout)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			// 区分关闭来源：ctx 驱动的关闭等待结果；外部直接 Shutdown 返回 nil
			select {
			case shutdownErr := <-shutdownErrCh:
				return shutdownErr
			case <-ctx.Done():
				return <-shutdownErrCh
			default:
				close(listenDone)
				return nil
			}
		}
		close(listenDone)
		return err
	}
}

// Drain 返回一个阻塞到 ctx 取消、随后调用 shutdown 的服务函数。
//
// 用于把任务池、异步执行器等有 Shutdown(ctx) 的组件挂到 Group 上，
// 使其在进程退出时排空。
func Drain(shutdown func(ctx context.Context) error, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if shutdown == nil {
			return ErrNilFunc
		}
		<-ctx.Done()
		return shutdownWithTimeout(shutdown, timeout)
	}
}

func shutdownWithTimeout(shutdown func(ctx context.Context) error, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return shutdown(ctx)
}
