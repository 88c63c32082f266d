package xmask

import "errors"

var (
	// ErrNilType Register 传入 nil 类型。
	ErrNilType = errors.New("xmask: nil type")

	// ErrNotStruct Register 传入的类型（解引用后）不是结构体。
	ErrNotStruct = errors.New("xmask: type is not a struct")

	// ErrUnknownField Register 引用了结构体中不存在的字段。
	ErrUnknownField = errors.New("xmask: unknown field")

	// ErrInvalidTag mask 标签无法解析。
	ErrInvalidTag = errors.New("xmask: invalid mask tag")

	// ErrInvalidPattern pattern 策略的正则无法编译。
	ErrInvalidPattern = errors.New("xmask: invalid pattern")

	// ErrUnsupportedValue 值中包含无法渲染为 JSON 的类型（chan、func、complex 等）。
	ErrUnsupportedValue = errors.New("xmask: unsupported value")

	// ErrTooDeep 值嵌套超过上限（通常意味着循环引用）。
	ErrTooDeep = errors.New("xmask: value nesting too deep")
)
