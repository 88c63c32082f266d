// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入 xctx 上下文字段
//   - xmask: 敏感字段目录与遮蔽器
//   - xexec: 调用拦截，每次可记录调用产生一条结构化事件
//   - xrotate: 日志文件轮转
//
// 设计原则：
//   - 任何写入日志的用户数据先经过 xmask
//   - 日志字段名使用 xctx 的固定词表，便于按 correlation_id 检索
package observability
