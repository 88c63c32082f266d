package xpool

import "errors"

var (
	// ErrNilTask 提交的任务为 nil
	ErrNilTask = errors.New("xpool: nil task")

	// ErrPoolStopped 池已关闭
	ErrPoolStopped = errors.New("xpool: pool stopped")

	// ErrQueueFull 队列已满（仅 SaturationReject 策略）
	ErrQueueFull = errors.New("xpool: queue full")

	// ErrInvalidWorkers worker 数量超出 [1, maxWorkers]
	ErrInvalidWorkers = errors.New("xpool: invalid workers count")

	// ErrInvalidQueueSize 队列大小超出 [1, maxQueueSize]
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xpool: nil context")

	// ErrUnknownSaturation 无法识别的饱和策略名称
	ErrUnknownSaturation = errors.New("xpool: unknown saturation policy")
)
