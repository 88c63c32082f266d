package xctx

import "context"

// =============================================================================
// Store 注入与读取
// =============================================================================

// WithStore 将 Store 挂到 context 上。
//
// 如果 ctx 为 nil，返回 ErrNilContext。s 为 nil 时返回原 ctx。
func WithStore(ctx context.Context, s *Store) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if s == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, keyStore, s), nil
}

// StoreFrom 从 context 读取 Store，不存在返回 nil。
func StoreFrom(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(keyStore).(*Store)
	return s
}

// RequireStore 从 context 读取 Store，不存在返回 ErrMissingStore。
func RequireStore(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	s := StoreFrom(ctx)
	if s == nil {
		return nil, ErrMissingStore
	}
	return s, nil
}

// EnsureStore 确保 context 中存在 Store。
//
// 已存在则原样返回；否则创建新 Store 并注入。ctx 为 nil 时以 context.Background() 为父。
func EnsureStore(ctx context.Context) (context.Context, *Store) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s := StoreFrom(ctx); s != nil {
		return ctx, s
	}
	s := NewStore()
	return context.WithValue(ctx, keyStore, s), s
}

// =============================================================================
// 便捷函数：作用于 ctx 携带的 Store，无 Store 时为空操作
// =============================================================================

// Put 写入 ctx 中 Store 的条目。
func Put(ctx context.Context, key, value string) {
	StoreFrom(ctx).Put(key, value)
}

// Get 读取 ctx 中 Store 的条目，缺失返回空字符串。
func Get(ctx context.Context, key string) string {
	return StoreFrom(ctx).Value(key)
}

// Remove 删除 ctx 中 Store 的条目。
func Remove(ctx context.Context, key string) {
	StoreFrom(ctx).Remove(key)
}

// Clear 清空 ctx 中 Store 的全部条目。
func Clear(ctx context.Context) {
	StoreFrom(ctx).Clear()
}

// SnapshotOf 返回 ctx 中 Store 的快照，无 Store 时返回空快照。
func SnapshotOf(ctx context.Context) Snapshot {
	return StoreFrom(ctx).Snapshot()
}

// Restore 用快照恢复 ctx 中的 Store。
func Restore(ctx context.Context, snap Snapshot) {
	StoreFrom(ctx).Restore(snap)
}

// PutMeta 写入 "meta.<name>" 业务键。
func PutMeta(ctx context.Context, name, value string) {
	StoreFrom(ctx).Put(MetaKey(name), value)
}

// =============================================================================
// Correlation ID
// =============================================================================

// CorrelationID 读取 correlation_id，缺失返回空字符串。
func CorrelationID(ctx context.Context) string {
	return Get(ctx, KeyCorrelationID)
}

// RequestID 读取 request_id，缺失返回空字符串。
func RequestID(ctx context.Context) string {
	return Get(ctx, KeyRequestID)
}

// RequireCorrelationID 读取 correlation_id，缺失返回错误。
func RequireCorrelationID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := CorrelationID(ctx)
	if v == "" {
		return "", ErrMissingCorrelationID
	}
	return v, nil
}

// EnsureCorrelationID 确保 context 中存在 Store 且 Store 中存在 correlation_id。
//
// 语义：有则沿用（不校验格式），无则生成。适用于不在 HTTP 请求内的调用入口，
// 例如定时任务或消息消费者。返回的 ctx 可能是新派生的（当原 ctx 没有 Store 时）。
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	ctx, s := EnsureStore(ctx)
	if id := s.Value(KeyCorrelationID); id != "" {
		return ctx, id
	}
	id := GenerateCorrelationID()
	s.Put(KeyCorrelationID, id)
	return ctx, id
}
