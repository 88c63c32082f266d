package xexec

import "errors"

// 业务可直接返回或包装以下错误，拦截器将其视为预期失败（WARN，无堆栈）。
var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")

	// ErrValidation 输入校验失败
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication 认证失败
	ErrAuthentication = errors.New("authentication failed")
)

var (
	// ErrEmptyTypeName 注册标记时类型名为空
	ErrEmptyTypeName = errors.New("xexec: empty type name")

	// ErrEmptyMethodName 注册方法标记时方法名为空
	ErrEmptyMethodName = errors.New("xexec: empty method name")

	// ErrNilFunc 被包装的函数为 nil
	ErrNilFunc = errors.New("xexec: nil func")
)
