package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xdiag/pkg/context/xctx"
)

// EnrichHandler 自动从 context 携带的 xctx.Store 提取请求级字段并注入日志
//
// 装饰模式实现，包装底层 slog.Handler，在 Handle() 时追加
// correlation_id、request_id、user_id、http_path 等请求级条目。
// 调用级条目（class/method/args 等）不注入，它们由调用方作为 attrs 显式传入。
//
// Best-effort 策略：ctx 中没有 Store 时原样透传。
// 记录上已存在的同名 key 不会被重复注入，调用方显式传入的值优先。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler
//
// 设计决策: 调用 WithGroup 后，注入字段会被归入 group 下。
// 这是 slog handler 架构的固有限制，如需顶层 correlation_id，
// 避免对带 enrich 的 logger 调用 WithGroup。
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// maxEnrichAttrs 栈上缓冲的属性数量，超出时 append 自动扩容
const maxEnrichAttrs = 12

// Handle 在调用底层 handler 前注入 Store 中的请求级字段
//
// 根据 slog 契约，必须 Clone record 后再修改，避免影响其他 handler。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [maxEnrichAttrs]slog.Attr
	attrs := xctx.AppendRequestAttrs(buf[:0], ctx)
	if len(attrs) == 0 {
		return h.base.Handle(ctx, r)
	}

	if r.NumAttrs() > 0 {
		present := make(map[string]struct{}, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			present[a.Key] = struct{}{}
			return true
		})
		kept := attrs[:0]
		for _, a := range attrs {
			if _, dup := present[a.Key]; !dup {
				kept = append(kept, a)
			}
		}
		attrs = kept
	}

	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
