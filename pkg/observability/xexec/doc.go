// Package xexec 提供显式的调用拦截：为有"可记录"标记的业务调用生成一条结构化事件。
//
// # 标记
//
// 标记以 [Loggable] 配置的形式注册到 [Registry]，类型名使用 [TypeName] 的完整形式：
//
//	reg := xexec.NewRegistry()
//	_ = reg.MarkType(xexec.TypeName(svc), xexec.DefaultLoggable())
//
//	apply := xexec.DefaultLoggable()
//	apply.Message = "candidate ${candidateID} applied to ${jobID}"
//	_ = reg.MarkMethod(xexec.TypeName(svc), "Apply", apply)
//
// 方法级标记整体覆盖类型级标记；没有任何标记的调用直接透传，不产生事件。
//
// # 调用
//
//	app, err := xexec.Call(ctx, ic, xexec.Invocation{
//		Type:   xexec.TypeName(svc),
//		Method: "Apply",
//		Params: []xexec.Param{xexec.P("candidateID", cid), xexec.P("jobID", jid)},
//	}, func(ctx context.Context) (*Application, error) {
//		return svc.apply(ctx, cid, jid)
//	})
//
// 成功事件消息为模板渲染结果或 "<method> completed in Nms"，超过慢调用阈值
// （默认 800ms）追加 " (SLOW)"。失败事件按 [IsExpected] 分级：预期失败为 WARN 且无堆栈，
// 其余使用 FailureLevel 并附带堆栈；错误码由 [ErrorCode] 根据 [ErrorKey] 计算：
// 自定义错误类型按类型名，errors.New 这类哨兵错误按类型名加根消息。
//
// 调用期间 Store 中写入 class、method、args 等调用级键，结束时移除
// （嵌套调用恢复外层的值），correlation_id 保留。
package xexec
