// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转、脱敏）
//   - 自动从 ctx 携带的 xctx.Store 注入 correlation_id、request_id、user_id 等（EnrichHandler，默认启用）
//   - 动态级别调整（运行时热更新）
//   - 额外的 LevelFatal 级别：记录自动附带堆栈，不退出进程
//   - 全局 Logger 便利函数
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetFormat("json").
//		SetRotation("/var/log/app/app.log").
//		SetMasker(nil). // 使用 xmask.Default()
//		Build()
//	defer cleanup()
//
// Builder 为一次性使用，first-error-wins。
//
// # 脱敏
//
// [Builder.SetMasker] 在输出前对属性做脱敏：敏感 key 整体替换，字符串值与 msg 做文本遮蔽。
// xctx 词表内的 key 不处理。自定义治理逻辑用 [Builder.SetReplaceAttr]，在脱敏之后执行。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)、LevelFatal(12)。
// [ParseLevel] 从字符串解析；Level 实现 encoding.TextMarshaler/TextUnmarshaler。
//
// # EnrichHandler 注意事项
//
// 对启用 enrich 的 logger 调用 WithGroup 时，注入字段会归入 group 下。
// 记录上已显式携带的同名 key 不会被重复注入。
package xlog
