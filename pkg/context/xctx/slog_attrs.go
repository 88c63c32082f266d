package xctx

import (
	"context"
	"log/slog"
	"slices"
)

// leadingKeys 输出时固定排在最前的 Key，便于按 correlation_id 检索。
var leadingKeys = [...]string{KeyCorrelationID, KeyRequestID, KeyUserID}

// AppendRequestAttrs 将 ctx 中 Store 的请求级条目追加到 attrs。
//
// 调用级 Key（class/method/args 等）不会被追加：它们由 xexec 事件自身携带。
// 输出顺序：correlation_id、request_id、user_id 在前，其余按 key 字典序。
func AppendRequestAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	return appendAttrs(attrs, StoreFrom(ctx), false)
}

// AppendAllAttrs 与 AppendRequestAttrs 相同，但包含调用级 Key。
func AppendAllAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	return appendAttrs(attrs, StoreFrom(ctx), true)
}

// LogAttrs 从 ctx 提取请求级条目，Store 缺失或为空时返回 nil。
// 注意：每次调用会分配新切片。热路径建议使用 AppendRequestAttrs。
func LogAttrs(ctx context.Context) []slog.Attr {
	s := StoreFrom(ctx)
	if s.Len() == 0 {
		return nil
	}
	attrs := appendAttrs(make([]slog.Attr, 0, s.Len()), s, false)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func appendAttrs(attrs []slog.Attr, s *Store, withInvocation bool) []slog.Attr {
	if s.Len() == 0 {
		return attrs
	}
	snap := s.Snapshot()
	for _, k := range leadingKeys {
		if v, ok := snap.Get(k); ok {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	for _, k := range snap.Keys() {
		if slices.Contains(leadingKeys[:], k) {
			continue
		}
		if !withInvocation && IsInvocationKey(k) {
			continue
		}
		v, _ := snap.Get(k)
		attrs = append(attrs, slog.String(k, v))
	}
	return attrs
}
