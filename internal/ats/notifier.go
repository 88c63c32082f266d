package ats

import (
	"context"
	"log/slog"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// Notification 发给候选人的通知
type Notification struct {
	CandidateID string
	Email       string
	Subject     string
}

// Notifier 通知发送方
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier 只写日志的通知实现
type LogNotifier struct {
	logger xlog.Logger
}

// NewLogNotifier logger 为 nil 时使用 xlog.Default()
func NewLogNotifier(logger xlog.Logger) *LogNotifier {
	if logger == nil {
		logger = xlog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify 记录一条通知日志，不输出收件地址
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	n.logger.Info(ctx, "notification sent",
		slog.String("candidate", note.CandidateID),
		slog.String("subject", note.Subject),
	)
	return nil
}
