package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

// WorkerMetaKey worker 名称在其 Store 中的元数据名（完整 key 为 "meta.worker"）
const WorkerMetaKey = "worker"

// Task 池中执行的任务。
//
// ctx 为执行该任务的 worker 的上下文，携带该 worker 独占的长生命周期 xctx.Store。
type Task func(ctx context.Context)

// Pool 固定 worker 数量、有界队列的任务池。
//
// 每个 worker goroutine 持有一个 xctx.Store，在 worker 整个生命周期内复用，
// 初始只包含 meta.worker。任务之间不会自动清理该 Store，
// 需要隔离时由调用方（如 xasync）负责保存与恢复。
type Pool struct {
	queue    chan Task
	stopped  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	opts     options
	workers  int

	panics atomic.Uint64
}

var _ io.Closer = (*Pool)(nil)

// New 创建并启动任务池
func New(workers, queueSize int, opts ...Option) (*Pool, error) {
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	p := &Pool{
		queue:   make(chan Task, queueSize),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		opts:    o,
		workers: workers,
	}

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(p.WorkerName(i))
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string { return p.opts.name }

// Workers 返回 worker 数量
func (p *Pool) Workers() int { return p.workers }

// Saturation 返回提交策略
func (p *Pool) Saturation() Saturation { return p.opts.saturation }

// Pending 返回队列中等待执行的任务数
func (p *Pool) Pending() int { return len(p.queue) }

// Panics 返回累计被恢复的任务 panic 次数
func (p *Pool) Panics() uint64 { return p.panics.Load() }

// WorkerName 返回第 i 个 worker 的名称
func (p *Pool) WorkerName(i int) string {
	return p.opts.name + "-" + strconv.Itoa(i)
}

func (p *Pool) worker(name string) {
	defer p.wg.Done()

	store := xctx.NewStore()
	store.Put(xctx.MetaKey(WorkerMetaKey), name)
	// WithStore 只在 ctx 为 nil 时报错
	ctx, _ := xctx.WithStore(context.Background(), store)

	for task := range p.queue {
		p.run(ctx, task)
	}
}

// run 执行单个任务，panic 被恢复并记录，不影响 worker
func (p *Pool) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.opts.logger.Error(ctx, "xpool: task panic recovered",
				slog.String("pool", p.opts.name),
				slog.Any("panic", r),
				slog.String(xlog.KeyStack, string(debug.Stack())),
			)
		}
	}()
	task(ctx)
}

// Submit 提交任务。
//
// 队列满时按饱和策略处理：SaturationBlock 阻塞到有空位、ctx 结束或池关闭；
// SaturationReject 立即返回 ErrQueueFull。池关闭后返回 ErrPoolStopped。
func (p *Pool) Submit(ctx context.Context, task Task) (err error) {
	if ctx == nil {
		return ErrNilContext
	}
	if task == nil {
		return ErrNilTask
	}
	select {
	case <-p.stopped:
		return ErrPoolStopped
	default:
	}

	// Shutdown 与 Submit 并发时可能向已关闭的 queue 发送
	defer func() {
		if r := recover(); r != nil {
			err = ErrPoolStopped
		}
	}()

	if p.opts.saturation == SaturationReject {
		select {
		case <-p.stopped:
			return ErrPoolStopped
		case p.queue <- task:
			return nil
		default:
			return ErrQueueFull
		}
	}

	select {
	case <-p.stopped:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- task:
		return nil
	}
}

// Close 停止接收新任务并等待队列中的任务全部执行完成
func (p *Pool) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收新任务，等待已入队任务完成或 ctx 结束。
//
// ctx 结束时返回 ctx.Err()，剩余 worker 在后台继续处理直到队列耗尽，可通过 Done 等待。
// 不可在任务内调用，否则会死锁。
func (p *Pool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.stopOnce.Do(func() {
		close(p.stopped)
		close(p.queue)
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回在全部 worker 退出后关闭的 channel
func (p *Pool) Done() <-chan struct{} {
	return p.done
}
