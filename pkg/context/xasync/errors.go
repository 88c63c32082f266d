package xasync

import (
	"errors"
	"fmt"
)

var (
	// ErrNilFunc 包装的函数为 nil
	ErrNilFunc = errors.New("xasync: nil func")

	// ErrNilPool Executor 未提供任务池
	ErrNilPool = errors.New("xasync: nil pool")

	// ErrPanic 任务发生 panic（仅 Go 返回，使用 errors.As 取 *PanicError）
	ErrPanic = errors.New("xasync: task panicked")
)

// PanicError 记录 Go 启动的任务中被恢复的 panic
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPanic, e.Value)
}

// Unwrap 使 errors.Is(err, ErrPanic) 成立
func (e *PanicError) Unwrap() error { return ErrPanic }
