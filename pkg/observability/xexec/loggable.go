package xexec

import (
	"strings"
	"sync"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// DefaultSensitiveParams 默认的敏感参数名片段
var DefaultSensitiveParams = []string{"password", "token", "secret", "key", "credential"}

// Loggable 可记录调用的配置。
//
// 等价于挂在类型或方法上的"可记录"标记，通过 Registry 注册。
type Loggable struct {
	// Level 成功时的日志级别
	Level xlog.Level
	// FailureLevel 非预期失败时的日志级别，通常为 LevelError 或 LevelFatal
	FailureLevel xlog.Level
	// Message 自定义消息模板，支持 ${参数名} 占位符；空值使用默认消息
	Message string
	// LogArgs 是否记录参数摘要
	LogArgs bool
	// LogResult 是否记录返回值（脱敏并截断）
	LogResult bool
	// LogExecutionTime 是否记录耗时与慢调用标记
	LogExecutionTime bool
	// LogErrors 是否在失败事件中附带错误消息与堆栈。
	// 关闭时失败事件仍按失败分级，并保留 exception_type 与 error_code。
	LogErrors bool
	// SensitiveParams 参数名包含任一片段（大小写不敏感）时整体遮蔽
	SensitiveParams []string
}

// DefaultLoggable 返回默认配置：Info / Error，记录参数、耗时与错误，不记录返回值
func DefaultLoggable() Loggable {
	return Loggable{
		Level:            xlog.LevelInfo,
		FailureLevel:     xlog.LevelError,
		LogArgs:          true,
		LogExecutionTime: true,
		LogErrors:        true,
		SensitiveParams:  DefaultSensitiveParams,
	}
}

// =============================================================================
// Registry
// =============================================================================

type methodKey struct {
	typeName string
	method   string
}

// Registry 类型级与方法级标记表，并发安全。
//
// 解析时方法级标记整体覆盖类型级标记；两者都没有时调用直接透传。
type Registry struct {
	mu      sync.RWMutex
	types   map[string]Loggable
	methods map[methodKey]Loggable
}

// NewRegistry 创建空标记表
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[string]Loggable),
		methods: make(map[methodKey]Loggable),
	}
}

// MarkType 为类型的全部方法注册标记
func (r *Registry) MarkType(typeName string, l Loggable) error {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return ErrEmptyTypeName
	}
	r.mu.Lock()
	r.types[typeName] = l
	r.mu.Unlock()
	return nil
}

// MarkMethod 为单个方法注册标记，优先于类型级标记
func (r *Registry) MarkMethod(typeName, method string, l Loggable) error {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return ErrEmptyTypeName
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return ErrEmptyMethodName
	}
	r.mu.Lock()
	r.methods[methodKey{typeName, method}] = l
	r.mu.Unlock()
	return nil
}

// Unmark 移除类型及其方法的全部标记
func (r *Registry) Unmark(typeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, typeName)
	for k := range r.methods {
		if k.typeName == typeName {
			delete(r.methods, k)
		}
	}
}

// Resolve 返回生效配置：方法级 > 类型级；都不存在时 ok 为 false
func (r *Registry) Resolve(typeName, method string) (Loggable, bool) {
	if r == nil {
		return Loggable{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.methods[methodKey{typeName, method}]; ok {
		return l, true
	}
	l, ok := r.types[typeName]
	return l, ok
}
