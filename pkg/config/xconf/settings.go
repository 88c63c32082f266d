package xconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/util/xpool"
)

// =============================================================================
// Settings
// =============================================================================

// Settings xdiag 组件的配置面。
//
// 配置文件中未出现的字段保持 DefaultSettings 的取值。
type Settings struct {
	Log         LogSettings         `koanf:"log"`
	Interceptor InterceptorSettings `koanf:"interceptor"`
	Request     RequestSettings     `koanf:"request"`
	Async       AsyncSettings       `koanf:"async"`
}

// LogSettings 日志输出
type LogSettings struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
	// File 非空时写入该文件并按大小轮转
	File string `koanf:"file"`
	Mask bool   `koanf:"mask"`
}

// InterceptorSettings 调用拦截器的默认标记与全局参数
type InterceptorSettings struct {
	Level            string        `koanf:"level"`
	FailureLevel     string        `koanf:"failure_level"`
	LogArgs          bool          `koanf:"log_args"`
	LogResult        bool          `koanf:"log_result"`
	LogExecutionTime bool          `koanf:"log_execution_time"`
	LogExceptions    bool          `koanf:"log_exceptions"`
	SensitiveParams  []string      `koanf:"sensitive_params"`
	SlowThreshold    time.Duration `koanf:"slow_threshold"`
	MaxContentLength int           `koanf:"max_content_length"`
}

// RequestSettings HTTP 请求上下文中间件
type RequestSettings struct {
	CorrelationHeader string   `koanf:"correlation_header"`
	ExemptPrefixes    []string `koanf:"exempt_prefixes"`
	AccessLog         bool     `koanf:"access_log"`
}

// AsyncSettings 异步任务池
type AsyncSettings struct {
	Workers    int    `koanf:"workers"`
	QueueSize  int    `koanf:"queue_size"`
	Saturation string `koanf:"saturation"`
	Name       string `koanf:"name"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "text",
			Mask:   true,
		},
		Interceptor: InterceptorSettings{
			Level:            "info",
			FailureLevel:     "error",
			LogArgs:          true,
			LogExecutionTime: true,
			LogExceptions:    true,
			SensitiveParams:  []string{"password", "token", "secret", "key", "credential"},
			SlowThreshold:    800 * time.Millisecond,
			MaxContentLength: 1000,
		},
		Request: RequestSettings{
			CorrelationHeader: "X-Correlation-ID",
			ExemptPrefixes:    []string{"/health", "/actuator", "/metrics", "/static", "/favicon.ico"},
			AccessLog:         true,
		},
		Async: AsyncSettings{
			Workers:    4,
			QueueSize:  100,
			Saturation: "block",
			Name:       "xdiag-async",
		},
	}
}

// Validate 校验全部字段，返回汇总了所有问题的 ErrInvalidSettings
func (s Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := xlog.ParseLevel(s.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s.Log.Format)) {
	case "", "text", "json":
	default:
		add("log.format: unknown format %q", s.Log.Format)
	}

	if _, err := xlog.ParseLevel(s.Interceptor.Level); err != nil {
		add("interceptor.level: %w", err)
	}
	if _, err := xlog.ParseLevel(s.Interceptor.FailureLevel); err != nil {
		add("interceptor.failure_level: %w", err)
	}
	if s.Interceptor.SlowThreshold <= 0 {
		add("interceptor.slow_threshold: must be positive, got %s", s.Interceptor.SlowThreshold)
	}
	if s.Interceptor.MaxContentLength < 0 {
		add("interceptor.max_content_length: must not be negative, got %d", s.Interceptor.MaxContentLength)
	}

	if strings.TrimSpace(s.Request.CorrelationHeader) == "" {
		add("request.correlation_header: must not be empty")
	}

	if s.Async.Workers < 1 {
		add("async.workers: must be at least 1, got %d", s.Async.Workers)
	}
	if s.Async.QueueSize < 1 {
		add("async.queue_size: must be at least 1, got %d", s.Async.QueueSize)
	}
	if _, err := xpool.ParseSaturation(s.Async.Saturation); err != nil {
		add("async.saturation: %w", err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// =============================================================================
// 加载
// =============================================================================

// SettingsFrom 以 DefaultSettings 为底，叠加 cfg 中的值并校验
func SettingsFrom(cfg Config) (Settings, error) {
	s := DefaultSettings()
	if err := cfg.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	// 列表整体替换默认值，不按下标合并
	k := cfg.Client()
	if k.Exists("interceptor.sensitive_params") {
		s.Interceptor.SensitiveParams = k.Strings("interceptor.sensitive_params")
	}
	if k.Exists("request.exempt_prefixes") {
		s.Request.ExemptPrefixes = k.Strings("request.exempt_prefixes")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings 从文件加载 Settings，同时返回底层 Config 以便 WatchSettings
func LoadSettings(path string, opts ...Option) (Settings, Config, error) {
	cfg, err := New(path, opts...)
	if err != nil {
		return Settings{}, nil, err
	}
	s, err := SettingsFrom(cfg)
	if err != nil {
		return Settings{}, nil, err
	}
	return s, cfg, nil
}

// LoadSettingsBytes 从字节数据加载 Settings
func LoadSettingsBytes(data []byte, format Format, opts ...Option) (Settings, error) {
	cfg, err := NewFromBytes(data, format, opts...)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFrom(cfg)
}

// WatchSettings 监视配置文件，每次成功重载且校验通过后以新 Settings 回调。
// 重载或校验失败时 err 非 nil，调用方应继续使用旧值。
func WatchSettings(cfg Config, fn func(Settings, error), opts ...WatchOption) (*Watcher, error) {
	return Watch(cfg, func(c Config, err error) {
		if fn == nil {
			return
		}
		if err != nil {
			fn(Settings{}, err)
			return
		}
		fn(SettingsFrom(c))
	}, opts...)
}
