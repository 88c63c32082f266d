package xctx

import "errors"

// =============================================================================
// Context Key 类型定义
// =============================================================================

// contextKey 包私有类型，避免与其他包的 context key 冲突。
type contextKey string

const (
	keyStore     = contextKey("xctx:store")
	keyPrincipal = contextKey("xctx:principal")
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrMissingStore 表示 context 中没有 Store。
	ErrMissingStore = errors.New("xctx: missing store")

	// ErrMissingCorrelationID 表示 Store 中没有 correlation_id。
	ErrMissingCorrelationID = errors.New("xctx: missing correlation_id")
)
