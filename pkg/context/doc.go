// Package context 提供请求级上下文相关的子包。
//
// 子包列表：
//   - xctx: 请求级键值存储 Store，随 context.Context 显式传递
//   - xrequest: HTTP 中间件，为每个请求创建并填充 Store，请求结束时清空
//   - xasync: 将提交方的 Store 快照带到 worker 上执行，执行后恢复 worker 原状态
//
// 设计原则：
//   - 所有上下文信息通过 context.Context 传递，不使用全局变量或 goroutine 本地存储
//   - 快照不可变，跨 goroutine 只传递快照
package context
