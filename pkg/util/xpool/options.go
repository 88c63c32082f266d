package xpool

import (
	"fmt"
	"strings"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// Saturation 队列满时的提交策略
type Saturation int

const (
	// SaturationBlock 阻塞直到有空位或 ctx 结束（默认）
	SaturationBlock Saturation = iota
	// SaturationReject 立即返回 ErrQueueFull
	SaturationReject
)

// String 返回策略名称
func (s Saturation) String() string {
	switch s {
	case SaturationReject:
		return "reject"
	default:
		return "block"
	}
}

// ParseSaturation 解析 "block" / "reject"（大小写不敏感），空串视为 block
func ParseSaturation(s string) (Saturation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return SaturationBlock, nil
	case "reject":
		return SaturationReject, nil
	default:
		return SaturationBlock, fmt.Errorf("%w: %q", ErrUnknownSaturation, s)
	}
}

// Option 配置 Pool 的可选参数
type Option func(*options)

type options struct {
	logger     xlog.Logger
	name       string
	saturation Saturation
}

func defaultOptions() options {
	return options{
		name:       "xpool",
		saturation: SaturationBlock,
	}
}

// WithLogger 设置 panic 恢复等内部事件的日志记录器，nil 时使用 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithName 设置池名称，worker 名称为 "<name>-<序号>"
func WithName(name string) Option {
	return func(o *options) {
		if name = strings.TrimSpace(name); name != "" {
			o.name = name
		}
	}
}

// WithSaturation 设置队列满时的提交策略
func WithSaturation(s Saturation) Option {
	return func(o *options) {
		o.saturation = s
	}
}
