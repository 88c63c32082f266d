// Package xasync 把提交方的 xctx 上下文带到异步执行的 goroutine 上。
//
// 池化 worker 持有长生命周期的 Store，直接复用会让上一个任务的条目泄漏到下一个任务。
// [Task.RunOn] 在执行前后对 worker 的 Store 做保存与恢复：
//
//	保存原有条目 → 清空 → 写入提交方快照 → 执行 → 清空 → 恢复原有条目
//
// 恢复在 defer 中执行，任务返回错误或 panic 时同样生效。
//
// 用法：
//
//	pool, _ := xpool.New(4, 100, xpool.WithName("notify"))
//	exec, _ := xasync.NewExecutor(pool)
//	defer exec.Close()
//
//	_ = exec.Submit(ctx, func(ctx context.Context) error {
//		// ctx 中的 correlation_id、user_id 与提交方一致
//		return notify(ctx)
//	})
//
// 一次性的后台 goroutine 使用 [Go]。
package xasync
