package xrun

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// testSigChanKey 测试时通过 ctx 注入信号通道，生产路径下为 nil。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// watchSignals 收到信号后以 *SignalError 关闭 Group。
func (g *Group) watchSignals() {
	signals := g.opts.signals
	// signal.Notify 无参会订阅所有信号
	if len(signals) == 0 {
		signals = DefaultSignals()
	}

	g.Go(func(ctx context.Context) error {
		testc := testSigChan(ctx)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testc:
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.opts.logger.Info(ctx, "received signal",
			slog.String("group", g.opts.name),
			slog.String("signal", sig.String()),
		)
		g.cancel(&SignalError{Signal: sig})
		return nil
	})
}
