// Package xrun 基于 errgroup 的进程生命周期管理。
//
// Group 并发运行多个服务，任一服务出错或收到终止信号时统一取消；
// Run/RunServices 额外注册信号监听，信号退出时返回 *SignalError。
//
//	err := xrun.RunServices(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.Named("http", xrun.ServiceFunc(xrun.HTTPServer(srv, 10*time.Second))),
//	    xrun.Named("async", xrun.ServiceFunc(xrun.Drain(executor.Shutdown, 5*time.Second))),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// GoWithName 启动的服务拥有独立 xctx.Store（meta.service=<name>），
// 生命周期日志经 xlog 的 enrich 自动带上服务名。
package xrun
