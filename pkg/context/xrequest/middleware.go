package xrequest

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// =============================================================================
// HTTP 中间件
// =============================================================================

// HTTPMiddleware 返回请求上下文初始化中间件。
//
// 对每个非豁免请求：
//  1. 读取 correlation ID 请求头，缺失或非法时生成
//  2. 新建 xctx.Store 并写入 correlation_id、request_id（总是服务端生成）、
//     http_method、http_path、client_ip、user_agent、session_id（会话 cookie 的 xctx.SessionRef，仅当请求已带 cookie）
//  3. 写入 user_id / user_roles，未认证为 anonymous
//  4. 在调用 next 之前把 correlation ID 回写到响应头
//  5. 结束时记录 status_code、duration_ms 并输出访问日志，最后清空 Store（panic 时同样执行）
func HTTPMiddleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = xlog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			store := xctx.NewStore()
			ctx, err := xctx.WithStore(r.Context(), store)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			correlationID := cfg.correlationID(r)
			cfg.seed(store, r, correlationID)
			w.Header().Set(cfg.correlationHeader, correlationID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				if rec != nil {
					status = http.StatusInternalServerError
				}
				cfg.finish(ctx, store, r, status, time.Since(start))
				store.Clear()
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// exempt 按完整路径段匹配：前缀 /health 豁免 /health 与 /health/live，不豁免 /healthcheck
func (cfg *middlewareConfig) exempt(path string) bool {
	for _, p := range cfg.exemptPrefixes {
		base := strings.TrimSuffix(p, "/")
		if path == p || path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

// correlationID 沿用客户端传入的值；空、超长或含控制字符时重新生成
func (cfg *middlewareConfig) correlationID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(cfg.correlationHeader))
	if id == "" || len(id) > maxCorrelationIDLen || strings.ContainsFunc(id, unicode.IsControl) {
		return xctx.GenerateCorrelationID()
	}
	return id
}

func (cfg *middlewareConfig) seed(s *xctx.Store, r *http.Request, correlationID string) {
	s.Put(xctx.KeyCorrelationID, correlationID)
	s.Put(xctx.KeyRequestID, xctx.GenerateRequestID())
	s.Put(xctx.KeyHTTPMethod, r.Method)
	s.Put(xctx.KeyHTTPPath, r.URL.Path)
	s.Put(xctx.KeyClientIP, ClientIP(r))
	s.Put(xctx.KeyUserAgent, r.UserAgent())
	s.Put(xctx.KeySessionID, xctx.SessionRef(cfg.sessionID(r)))

	p, ok := cfg.resolver(r)
	xctx.ApplyPrincipal(s, p, ok)
}

// sessionID 只读取已存在的会话 cookie，从不创建会话；返回原值，写入 Store 前需转换为引用
func (cfg *middlewareConfig) sessionID(r *http.Request) string {
	for _, name := range cfg.sessionCookies {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func (cfg *middlewareConfig) finish(ctx context.Context, s *xctx.Store, r *http.Request, status int, elapsed time.Duration) {
	s.Put(xctx.KeyStatusCode, strconv.Itoa(status))
	s.Put(xctx.KeyDurationMs, strconv.FormatInt(elapsed.Milliseconds(), 10))
	if !cfg.accessLog {
		return
	}

	level := xlog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = xlog.LevelError
	case status >= http.StatusBadRequest:
		level = xlog.LevelWarn
	}
	cfg.logger.Log(ctx, level, r.Method+" "+r.URL.Path+" "+strconv.Itoa(status),
		xlog.StatusCode(status),
		xlog.DurationMs(elapsed),
	)
}

// =============================================================================
// 客户端地址
// =============================================================================

// ClientIP 返回客户端地址：X-Forwarded-For 的第一个条目，否则为 RemoteAddr 的主机部分
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
