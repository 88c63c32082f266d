package xlog

import (
	"log/slog"
	"time"

	"github.com/omeyang/xdiag/pkg/context/xctx"
)

// =============================================================================
// 常用属性 Key 常量
//
// 与 xctx 的诊断上下文词表保持一致，确保 Store 注入的字段与显式属性同名。
// =============================================================================

const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyStack 堆栈字段的标准 key
	KeyStack = "stack"

	// KeyDuration 人类可读耗时字段的标准 key
	KeyDuration = "duration"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	KeyUserID     = xctx.KeyUserID
	KeyRequestID  = xctx.KeyRequestID
	KeyMethod     = xctx.KeyHTTPMethod
	KeyPath       = xctx.KeyHTTPPath
	KeyStatusCode = xctx.KeyStatusCode
	KeyDurationMs = xctx.KeyDurationMs
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
//
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "operation failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "1.5s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// DurationMs 创建毫秒数耗时属性，便于机器聚合
func DurationMs(d time.Duration) slog.Attr {
	return slog.Int64(KeyDurationMs, d.Milliseconds())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// UserID 创建用户 ID 属性
func UserID(id string) slog.Attr {
	return slog.String(KeyUserID, id)
}

// StatusCode 创建 HTTP 状态码属性
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Method 创建 HTTP 方法属性
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}
