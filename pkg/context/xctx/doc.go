// Package xctx 提供请求级诊断上下文存储（Store）。
//
// Store 是一个字符串键值表，承载一次逻辑请求（或一个池化 worker）内的诊断元数据：
// correlation_id、request_id、http_method、http_path、client_ip、user_id 等。
// 它通过 context.Context 显式传递，而不是依赖 goroutine 本地存储。
//
// # 核心概念
//
//   - Store    : 可变的键值表，Put/Get/Remove/Clear/Snapshot/Restore
//   - Snapshot : 某一时刻 Store 全部条目的不可变副本
//   - 键词表   : Key* 常量构成的封闭集合，外加 "meta.*" 业务键（见 MetaKey）
//
// # 命名约定
//
//	WithStore(ctx, s)       - 注入：将 Store 挂到 context 上
//	StoreFrom(ctx)          - 读取：缺失时返回 nil（nil *Store 的方法均为安全空操作）
//	EnsureStore(ctx)        - 确保存在：已存在则复用，否则创建并注入
//	Put/Get/Remove(ctx,...) - 便捷函数：作用于 ctx 携带的 Store，无 Store 时为空操作
//	EnsureCorrelationID(ctx)- 确保 correlation_id 存在，缺失时生成
//
// # 失败语义
//
// Store 的所有操作都不返回错误、不 panic：
// 空 key 或空 value 的 Put 为空操作，nil Store 上的任何调用为空操作。
// 这些调用位于日志结构路径上，不能打断业务请求。
//
// # 跨 goroutine 传递
//
// Store 本身并发安全，但设计上不跨 goroutine 共享：
// 异步任务通过 Snapshot 拷贝提交方的条目，在执行方自己的 Store 上 Restore（见 xasync）。
package xctx
