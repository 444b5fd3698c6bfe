package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMinWorkers  = 4
	DefaultMaxWorkers  = 16
	DefaultItemTimeout = 60 * time.Second
)

// PoolConfig bounds a StageWorkerPool
type PoolConfig struct {
	MinWorkers  int
	MaxWorkers  int
	ItemTimeout time.Duration
}

// Result is the outcome of one item. Index is the item's submission position.
type Result[I, O any] struct {
	Index int
	Item  I
	Value O
	Err   error
}

// Pool runs a function over a batch of items with bounded parallelism
type Pool struct {
	cfg    PoolConfig
	cores  func() int
	logger *slog.Logger
}

// NewPool creates a pool; unset fields take the package defaults
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = DefaultMinWorkers
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = DefaultItemTimeout
	}
	return &Pool{
		cfg:    cfg,
		cores:  logicalCores,
		logger: slog.Default().With("component", "worker-pool"),
	}
}

func logicalCores() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Size returns the concurrency used for n items. A requested limit above
// zero is pinned, but never exceeds max(1, n). Otherwise the limit adapts:
// clamp(max(MinWorkers, 2*cores, n), MaxWorkers).
func (p *Pool) Size(n, requested int) int {
	if requested > 0 {
		return min(requested, max(1, n))
	}
	return min(max(p.cfg.MinWorkers, 2*p.cores(), n), p.cfg.MaxWorkers)
}

// Map runs fn once per item and pushes each result on the returned channel as
// soon as it is ready. The channel is closed after every item has produced
// exactly one result. A failing or panicking item never affects its siblings;
// cancelling ctx aborts items still waiting or running.
func Map[I, O any](ctx context.Context, p *Pool, items []I, limit int, fn func(context.Context, I) (O, error)) <-chan Result[I, O] {
	out := make(chan Result[I, O], len(items))
	size := p.Size(len(items), limit)

	go func() {
		defer close(out)

		sem := semaphore.NewWeighted(int64(size))
		var wg sync.WaitGroup
		for i, item := range items {
			if err := sem.Acquire(ctx, 1); err != nil {
				out <- Result[I, O]{Index: i, Item: item, Err: fmt.Errorf("not started: %w", err)}
				continue
			}
			wg.Add(1)
			go func(i int, item I) {
				defer wg.Done()
				defer sem.Release(1)
				out <- runItem(ctx, p, i, item, fn)
			}(i, item)
		}
		wg.Wait()
	}()

	return out
}

// runItem bounds fn by the item timeout. A fn that ignores its context is
// abandoned when the deadline passes so it cannot hold a pool slot.
func runItem[I, O any](ctx context.Context, p *Pool, i int, item I, fn func(context.Context, I) (O, error)) Result[I, O] {
	itemCtx, cancel := context.WithTimeout(ctx, p.cfg.ItemTimeout)
	defer cancel()

	done := make(chan Result[I, O], 1)
	go func() {
		res := Result[I, O]{Index: i, Item: item}
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker panic", "index", i, "panic", r)
				res.Err = fmt.Errorf("panic: %v", r)
			}
			done <- res
		}()
		res.Value, res.Err = fn(itemCtx, item)
	}()

	select {
	case res := <-done:
		return res
	case <-itemCtx.Done():
		return Result[I, O]{Index: i, Item: item, Err: fmt.Errorf("item %d: %w", i, itemCtx.Err())}
	}
}
