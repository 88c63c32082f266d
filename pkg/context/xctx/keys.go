package xctx

import "strings"

// =============================================================================
// 请求级 Key（整个请求生命周期内有效）
// =============================================================================

const (
	KeyCorrelationID = "correlation_id"
	KeyRequestID     = "request_id"
	KeyHTTPMethod    = "http_method"
	KeyHTTPPath      = "http_path"
	KeyClientIP      = "client_ip"
	KeyUserAgent     = "user_agent"
	KeySessionID     = "session_id"
	KeyUserID        = "user_id"
	KeyUserRoles     = "user_roles"
	KeyStatusCode    = "status_code"
	KeyDurationMs    = "duration_ms"
)

// =============================================================================
// 调用级 Key（由 xexec 在每次拦截调用时写入，调用结束时移除）
// =============================================================================

const (
	KeyClass         = "class"
	KeyMethod        = "method"
	KeyArgs          = "args"
	KeyExceptionType = "exception_type"
	KeyErrorCode     = "error_code"
	KeyExecutionTime = "execution_time"
)

// MetaPrefix 业务自定义键前缀。
const MetaPrefix = "meta."

// AnonymousUserID 未认证请求的 user_id 取值。
const AnonymousUserID = "anonymous"

// invocationKeys 调用级 Key 列表，顺序无关。
var invocationKeys = [...]string{
	KeyClass,
	KeyMethod,
	KeyArgs,
	KeyExceptionType,
	KeyErrorCode,
	KeyExecutionTime,
}

// InvocationKeys 返回调用级 Key 的副本。
func InvocationKeys() []string {
	out := make([]string, len(invocationKeys))
	copy(out, invocationKeys[:])
	return out
}

// requestKeys 请求级 Key 列表。
var requestKeys = [...]string{
	KeyCorrelationID,
	KeyRequestID,
	KeyHTTPMethod,
	KeyHTTPPath,
	KeyClientIP,
	KeyUserAgent,
	KeySessionID,
	KeyUserID,
	KeyUserRoles,
	KeyStatusCode,
	KeyDurationMs,
}

// IsVocabularyKey 判断 key 是否属于预定义词表（请求级或调用级，不含 meta.*）。
func IsVocabularyKey(key string) bool {
	for _, k := range requestKeys {
		if k == key {
			return true
		}
	}
	return IsInvocationKey(key)
}

// IsInvocationKey 判断 key 是否属于调用级 Key。
func IsInvocationKey(key string) bool {
	for _, k := range invocationKeys {
		if k == key {
			return true
		}
	}
	return false
}

// MetaKey 构造 "meta.<name>" 形式的业务键。
// name 会被 TrimSpace；已带前缀的 name 原样返回；空 name 返回空字符串（后续 Put 为空操作）。
func MetaKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, MetaPrefix) {
		return name
	}
	return MetaPrefix + name
}
