package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdiag/internal/ats"
	"github.com/omeyang/xdiag/pkg/config/xconf"
	"github.com/omeyang/xdiag/pkg/context/xasync"
	"github.com/omeyang/xdiag/pkg/context/xrequest"
	"github.com/omeyang/xdiag/pkg/lifecycle/xrun"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/util/xpool"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// createServeCommand 创建 serve 子命令
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动演示用的候选人申请服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件（yaml/json），修改后日志级别与慢调用阈值热更新",
			},
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "监听地址",
				Value:   defaultAddr,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "优雅关闭超时",
				Value: defaultShutdownTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdServe(ctx, serveOptions{
				configPath:      cmd.String("config"),
				addr:            cmd.String("addr"),
				shutdownTimeout: cmd.Duration("shutdown-timeout"),
				logOutput:       cmd.Root().ErrWriter,
			})
		},
	}
}

type serveOptions struct {
	configPath      string
	addr            string
	shutdownTimeout time.Duration
	logOutput       io.Writer
	// noSignals 为 true 时不注册信号处理，仅用于测试
	noSignals bool
}

// cmdServe 组装全部组件并运行到收到信号
func cmdServe(ctx context.Context, opts serveOptions) error {
	settings := xconf.DefaultSettings()
	var cfg xconf.Config
	if opts.configPath != "" {
		var err error
		settings, cfg, err = xconf.LoadSettings(opts.configPath)
		if err != nil {
			return err
		}
	}

	app, err := newApp(settings, opts.logOutput)
	if err != nil {
		return err
	}
	defer func() { _ = app.close() }()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	services := []xrun.Service{
		xrun.Named("http", xrun.ServiceFunc(xrun.HTTPServer(srv, opts.shutdownTimeout))),
		xrun.Named("async", xrun.ServiceFunc(xrun.Drain(app.exec.Shutdown, opts.shutdownTimeout))),
	}
	if cfg != nil {
		w, err := xconf.WatchSettings(cfg, app.reload)
		if err != nil {
			return err
		}
		services = append(services, xrun.Named("config-watch", w))
	}

	runOpts := []xrun.Option{xrun.WithName("xdiagctl"), xrun.WithLogger(app.logger)}
	if opts.noSignals {
		runOpts = append(runOpts, xrun.WithoutSignalHandler())
	}
	app.logger.Info(ctx, "xdiagctl serving", slog.String("addr", opts.addr))
	err = xrun.RunServices(ctx, runOpts, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

// =============================================================================
// 组装
// =============================================================================

// app 一次 serve 运行所需的全部组件
type app struct {
	logger  xlog.LoggerWithLevel
	ic      *xexec.Interceptor
	exec    *xasync.Executor
	handler http.Handler

	closeOnce sync.Once
	cleanup   func() error
}

func newApp(s xconf.Settings, logOutput io.Writer) (*app, error) {
	logger, cleanup, err := buildLogger(s.Log, logOutput)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, cleanup: cleanup}

	ok := false
	defer func() {
		if !ok {
			_ = a.close()
		}
	}()

	base, err := loggableFrom(s.Interceptor)
	if err != nil {
		return nil, err
	}
	reg := xexec.NewRegistry()
	if err := ats.MarkLoggable(reg, base); err != nil {
		return nil, err
	}
	a.ic = xexec.New(
		xexec.WithRegistry(reg),
		xexec.WithSink(xexec.NewLoggerSink(logger)),
		xexec.WithSlowThreshold(s.Interceptor.SlowThreshold),
		xexec.WithMaxContentLength(s.Interceptor.MaxContentLength),
	)

	sat, err := xpool.ParseSaturation(s.Async.Saturation)
	if err != nil {
		return nil, err
	}
	pool, err := xpool.New(s.Async.Workers, s.Async.QueueSize,
		xpool.WithName(s.Async.Name),
		xpool.WithLogger(logger),
		xpool.WithSaturation(sat),
	)
	if err != nil {
		return nil, err
	}
	a.exec, err = xasync.NewExecutor(pool, xasync.WithLogger(logger))
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	svc, err := ats.NewService(ats.NewMemoryRepository(), a.ic, a.exec, ats.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	h, err := ats.NewHandler(svc, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(xrequest.HTTPMiddleware(
		xrequest.WithCorrelationHeader(s.Request.CorrelationHeader),
		xrequest.WithExemptPrefixes(s.Request.ExemptPrefixes...),
		xrequest.WithAccessLog(s.Request.AccessLog),
		xrequest.WithLogger(logger),
		xrequest.WithPrincipalResolver(svc.PrincipalFromRequest),
	))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Mount("/api", h.Routes())
	a.handler = r

	ok = true
	return a, nil
}

// buildLogger 按日志配置构建 Logger，File 非空时输出到轮转文件
func buildLogger(ls xconf.LogSettings, out io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevelString(ls.Level).
		SetFormat(ls.Format).
		SetAddSource(ls.AddSource)
	if out != nil {
		b.SetOutput(out)
	}
	b.SetRotation(ls.File)
	if ls.Mask {
		b.SetMasker(nil)
	}
	return b.Build()
}

// loggableFrom 将拦截器配置转换为类型级默认标记
func loggableFrom(is xconf.InterceptorSettings) (xexec.Loggable, error) {
	level, err := xlog.ParseLevel(is.Level)
	if err != nil {
		return xexec.Loggable{}, fmt.Errorf("interceptor.level: %w", err)
	}
	failure, err := xlog.ParseLevel(is.FailureLevel)
	if err != nil {
		return xexec.Loggable{}, fmt.Errorf("interceptor.failure_level: %w", err)
	}
	return xexec.Loggable{
		Level:            level,
		FailureLevel:     failure,
		LogArgs:          is.LogArgs,
		LogResult:        is.LogResult,
		LogExecutionTime: is.LogExecutionTime,
		LogErrors:        is.LogExceptions,
		SensitiveParams:  is.SensitiveParams,
	}, nil
}

// reload 配置热更新回调。只应用运行期可安全变更的项：日志级别与慢调用阈值，
// 其余变更需重启生效。
func (a *app) reload(s xconf.Settings, err error) {
	ctx := context.Background()
	if err != nil {
		a.logger.Warn(ctx, "config reload rejected, keeping previous settings", xlog.Err(err))
		return
	}
	// Validate 已保证可解析
	level, _ := xlog.ParseLevel(s.Log.Level)
	a.logger.SetLevel(level)
	a.ic.SetSlowThreshold(s.Interceptor.SlowThreshold)
	a.logger.Info(ctx, "config reloaded",
		slog.String("log_level", level.String()),
		slog.Duration("slow_threshold", s.Interceptor.SlowThreshold),
	)
}

// close 释放日志轮转文件并关闭任务池，可重复调用
func (a *app) close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.exec != nil {
			err = a.exec.Close()
		}
		if a.cleanup != nil {
			err = errors.Join(err, a.cleanup())
		}
	})
	return err
}
