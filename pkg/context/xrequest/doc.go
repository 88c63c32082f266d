// Package xrequest 提供 HTTP 请求上下文初始化中间件。
//
// [HTTPMiddleware] 为每个请求创建独立的 xctx.Store，写入 correlation_id、request_id、
// 请求元数据与调用方身份，并保证请求结束时清空。下游 handler、xexec 拦截器与
// xlog 日志通过 r.Context() 读取这些字段。
//
//	r := chi.NewRouter()
//	r.Use(xrequest.HTTPMiddleware(
//		xrequest.WithLogger(logger),
//		xrequest.WithPrincipalResolver(resolveJWT),
//	))
//
// 豁免路径（默认 /health、/actuator、/metrics、/static、/favicon.ico）不做任何处理。
package xrequest
