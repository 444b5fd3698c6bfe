package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Size(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolConfig{})
	p.cores = func() int { return 2 }

	cases := []struct {
		n, requested, want int
	}{
		{1, 0, 4},
		{3, 0, 4},
		{10, 0, 10},
		{40, 0, 16},
		{3, 8, 3},
		{10, 2, 2},
		{0, 5, 1},
	}
	for _, tc := range cases {
		if got := p.Size(tc.n, tc.requested); got != tc.want {
			t.Fatalf("Size(%d, %d) = %d, want %d", tc.n, tc.requested, got, tc.want)
		}
	}

	p.cores = func() int { return 6 }
	if got := p.Size(2, 0); got != 12 {
		t.Fatalf("expected 2x cores, got %d", got)
	}
}

func TestPool_EveryItemOnce(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolConfig{ItemTimeout: time.Second})
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := map[int]int{}
	results := Map(context.Background(), p, items, 0, func(ctx context.Context, v int) (int, error) {
		mu.Lock()
		seen[v]++
		mu.Unlock()
		if v%7 == 0 {
			return 0, errors.New("boom")
		}
		if v == 13 {
			panic("bad item")
		}
		return v * 2, nil
	})

	got := map[int]bool{}
	failures := 0
	for r := range results {
		if got[r.Index] {
			t.Fatalf("duplicate result for %d", r.Index)
		}
		got[r.Index] = true
		if r.Err != nil {
			failures++
			continue
		}
		if r.Value != r.Item*2 {
			t.Fatalf("item %d: got %d", r.Item, r.Value)
		}
	}
	if len(got) != len(items) {
		t.Fatalf("got %d results, want %d", len(got), len(items))
	}
	if failures != 9 {
		t.Fatalf("expected 8 errors and 1 panic, got %d failures", failures)
	}
	for _, v := range items {
		if seen[v] != 1 {
			t.Fatalf("item %d attempted %d times", v, seen[v])
		}
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolConfig{ItemTimeout: time.Second})
	var running, peak int32
	items := make([]int, 12)
	results := Map(context.Background(), p, items, 3, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})
	for range results {
	}
	if peak > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", peak)
	}
}

func TestPool_ItemTimeout(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolConfig{ItemTimeout: 50 * time.Millisecond})
	start := time.Now()
	results := Map(context.Background(), p, []string{"stuck", "ok"}, 2, func(ctx context.Context, s string) (string, error) {
		if s == "stuck" {
			time.Sleep(2 * time.Second)
		}
		return s, nil
	})

	var errs int
	for r := range results {
		if r.Err != nil {
			if !errors.Is(r.Err, context.DeadlineExceeded) {
				t.Fatalf("unexpected error %v", r.Err)
			}
			errs++
		}
	}
	if errs != 1 {
		t.Fatalf("expected one timed out item, got %d", errs)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timed out item stalled the pool")
	}
}
