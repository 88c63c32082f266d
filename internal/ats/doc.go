// Package ats 一个最小的候选人/职位申请服务，用于演示请求上下文、
// 调用拦截与异步传播如何串起来。
//
// Service 的每个业务方法都经 xexec.Interceptor 执行，类型与方法级的
// 可记录标记由 MarkLoggable 注册；申请与注册后的通知经 xasync.Executor
// 异步发送，通知日志与原请求共享 correlation_id。
//
// Handler 把 Service 暴露为 chi 路由，错误按 xexec 的预期错误分类映射为 4xx。
package ats
