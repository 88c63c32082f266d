// Package xpool 提供固定 worker 数量、有界队列的任务池。
//
// 特性：
//   - worker 数量范围 [1, 65536]，队列大小范围 [1, 16777216]
//   - 每个 worker 独占一个长生命周期的 xctx.Store（初始仅含 meta.worker），
//     任务通过 ctx 访问它
//   - 饱和策略：SaturationBlock（默认，阻塞到有空位或 ctx 结束）或
//     SaturationReject（立即返回 ErrQueueFull）
//   - panic 恢复：单个任务 panic 只记录日志（含堆栈），worker 继续运行
//   - 优雅关闭：Close 等待队列耗尽；Shutdown(ctx) 支持超时，超时后可通过 Done 等待
//
// # 注意事项
//
//   - New 创建后自动启动 worker
//   - 池不会在任务之间清理 worker 的 Store；
//     需要把提交方上下文带到 worker 的场景请使用 xasync
//   - Close/Shutdown 不可在任务内调用，否则会死锁
//   - panic 的任务不会被重试
//
// 设计决策: New 返回 *Pool 而非接口，xpool 不需要多实现替换；
// 编译期通过 io.Closer 断言确保关闭契约。
package xpool
