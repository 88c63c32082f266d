package xexec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// expectedMessages 消息包含任一片段（大小写不敏感）即视为预期失败
var expectedMessages = []string{"validation", "not found", "invalid email or password"}

// expecter 自行声明是否为预期失败的错误
type expecter interface {
	Expected() bool
}

// IsExpected 判断失败是否属于预期（认证失败、资源不存在、校验失败）。
//
// 优先使用结构化匹配：errors.Is 命中 ErrNotFound/ErrValidation/ErrAuthentication，
// 或链上任一错误实现 Expected() bool 且返回 true；最后按消息片段匹配。
func IsExpected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrAuthentication) {
		return true
	}
	var e expecter
	if errors.As(err, &e) {
		return e.Expected()
	}
	return expectedMessage(err.Error())
}

func expectedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range expectedMessages {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// ErrorCode 返回错误键对应的错误码 "ERR-dddd"，同一键恒定
func ErrorCode(key string) string {
	return fmt.Sprintf("ERR-%04d", xxhash.Sum64String(key)%10000)
}

// plainTypes 只携带消息、没有类型语义的错误类型。
// errors.New 与不带 %w 的 fmt.Errorf 都产生 errors.errorString。
var plainTypes = map[string]bool{
	"errors.errorString": true,
	"errors.joinError":   true,
}

// ErrorKey 返回计算错误码所用的键。
//
// 自定义错误类型以完整类型名为键；纯消息错误（哨兵错误）以 "类型名:根消息" 为键，
// 根消息取错误链最内层错误的消息，使 ErrNotFound 与 ErrValidation 得到不同的码，
// 同时不受外层包装文本（如带 ID 的上下文）影响。
func ErrorKey(err error) string {
	return errorKey(err, ErrorTypeName(err))
}

func errorKey(err error, typeName string) string {
	if err == nil || !plainTypes[typeName] {
		return typeName
	}
	return typeName + ":" + rootError(err).Error()
}

// rootError 沿 errors.Unwrap 取最内层错误；多错误包装（Join）本身即为根
func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// wrapperTypes 只负责包装、不携带类型语义的标准库错误
var wrapperTypes = map[string]bool{
	"fmt.wrapError":    true,
	"fmt.wrapErrors":   true,
	"errors.joinError": true,
}

// ErrorTypeName 返回错误链上第一个非标准包装错误的完整类型名
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}
	first := TypeName(err)
	for e := err; e != nil; e = errors.Unwrap(e) {
		if name := TypeName(e); !wrapperTypes[name] {
			return name
		}
	}
	return first
}

// panicError 把非 error 的 panic 值包装为 error，仅用于分类与日志
type panicError struct {
	value any
}

func (p panicError) Error() string { return fmt.Sprint(p.value) }

// panicTypeName panic 值为 error 时按错误链取类型名，否则取值的类型名
func panicTypeName(v any) string {
	if err, ok := v.(error); ok {
		return ErrorTypeName(err)
	}
	return TypeName(v)
}

func panicAsError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicError{value: v}
}
