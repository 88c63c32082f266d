package xrequest

import (
	"net/http"
	"strings"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// HTTP Header / Cookie 常量
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderForwardedFor  = "X-Forwarded-For"
)

// DefaultExemptPrefixes 默认不做上下文初始化的路径前缀
var DefaultExemptPrefixes = []string{"/health", "/actuator", "/metrics", "/static", "/favicon.ico"}

// DefaultSessionCookies 默认识别的会话 cookie 名称
var DefaultSessionCookies = []string{"session_id", "SESSION", "JSESSIONID"}

// maxCorrelationIDLen 客户端传入 correlation ID 的最大长度，超出时重新生成
const maxCorrelationIDLen = 128

// PrincipalResolver 从请求中解析已认证主体，ok 为 false 表示匿名
type PrincipalResolver func(r *http.Request) (p xctx.Principal, ok bool)

// MiddlewareOption 中间件选项
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	correlationHeader string
	exemptPrefixes    []string
	sessionCookies    []string
	resolver          PrincipalResolver
	logger            xlog.Logger
	accessLog         bool
}

func defaultConfig() middlewareConfig {
	return middlewareConfig{
		correlationHeader: HeaderCorrelationID,
		exemptPrefixes:    DefaultExemptPrefixes,
		sessionCookies:    DefaultSessionCookies,
		resolver:          principalFromContext,
		accessLog:         true,
	}
}

// principalFromContext 默认解析器：读取认证层写入 ctx 的 xctx.Principal
func principalFromContext(r *http.Request) (xctx.Principal, bool) {
	return xctx.PrincipalFrom(r.Context())
}

// WithCorrelationHeader 设置 correlation ID 的请求/响应头名称，空值忽略
func WithCorrelationHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.correlationHeader = name
		}
	}
}

// WithExemptPrefixes 替换豁免路径前缀；传入空列表表示不豁免任何路径
func WithExemptPrefixes(prefixes ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cleaned := make([]string, 0, len(prefixes))
		for _, p := range prefixes {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		cfg.exemptPrefixes = cleaned
	}
}

// WithSessionCookies 替换识别的会话 cookie 名称
func WithSessionCookies(names ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.sessionCookies = names
	}
}

// WithPrincipalResolver 设置主体解析器，nil 忽略
func WithPrincipalResolver(fn PrincipalResolver) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if fn != nil {
			cfg.resolver = fn
		}
	}
}

// WithLogger 设置访问日志使用的 Logger，默认 xlog.Default()
func WithLogger(l xlog.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = l
	}
}

// WithAccessLog 是否在请求结束时输出一条访问日志，默认启用
func WithAccessLog(enable bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.accessLog = enable
	}
}
