package xasync

import (
	"context"
	"runtime/debug"

	"github.com/omeyang/xdiag/pkg/context/xctx"
)

// Task 携带提交方上下文快照的延迟工作单元
type Task struct {
	snap xctx.Snapshot
	fn   func(context.Context) error
}

// Wrap 在调用时刻捕获 ctx 中 Store 的快照，返回待执行的 Task。
//
// 之后对提交方 Store 的修改不影响 Task；ctx 无 Store 时快照为空。
func Wrap(ctx context.Context, fn func(context.Context) error) Task {
	return Task{snap: xctx.SnapshotOf(ctx), fn: fn}
}

// Snapshot 返回捕获的快照
func (t Task) Snapshot() xctx.Snapshot { return t.snap }

// RunOn 在 workerCtx 所属的 Store 上执行任务。
//
// 顺序：保存 worker 原有条目 → 清空 → 写入提交方快照 → 执行 →
// 清空并恢复原有条目（defer，panic 时同样执行，panic 继续向上传播）。
// workerCtx 没有 Store 时新建一个。fn 收到的 ctx 即 workerCtx，不继承提交方的取消信号。
func (t Task) RunOn(workerCtx context.Context) error {
	if t.fn == nil {
		return ErrNilFunc
	}
	ctx, store := xctx.EnsureStore(workerCtx)

	prior := store.Snapshot()
	store.Clear()
	store.Restore(t.snap)
	defer func() {
		store.Clear()
		store.Restore(prior)
	}()

	return t.fn(ctx)
}

// Go 在新 goroutine 中执行 Wrap(ctx, fn)，返回的 channel 恰好收到一个结果后关闭。
//
// 新 goroutine 使用独立的 Store；panic 被恢复为 *PanicError。
func Go(ctx context.Context, fn func(context.Context) error) <-chan error {
	task := Wrap(ctx, fn)
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- runRecovered(task)
	}()
	return result
}

func runRecovered(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task.RunOn(context.Background())
}
