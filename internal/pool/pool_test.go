package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scour-dl/scour/internal/engine/types"
)

func newTasks(n int) []*types.MediaTask {
	out := make([]*types.MediaTask, n)
	for i := range out {
		out[i] = &types.MediaTask{ID: fmt.Sprintf("task-%03d", i)}
	}
	return out
}

func TestPoolRunsEveryTask(t *testing.T) {
	var ran atomic.Int64
	p := New(context.Background(), 4, func(ctx context.Context, task *types.MediaTask) {
		ran.Add(1)
	})

	for _, task := range newTasks(50) {
		p.Submit(task)
	}
	p.Close()
	p.Wait()

	if got := ran.Load(); got != 50 {
		t.Errorf("ran %d tasks, want 50", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 3
	var cur, max atomic.Int64

	p := New(context.Background(), size, func(ctx context.Context, task *types.MediaTask) {
		n := cur.Add(1)
		for {
			m := max.Load()
			if n <= m || max.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		cur.Add(-1)
	})

	for _, task := range newTasks(30) {
		p.Submit(task)
	}
	p.Close()
	p.Wait()

	if got := max.Load(); got > size {
		t.Errorf("observed %d concurrent tasks, limit is %d", got, size)
	}
}

func TestPoolAdmitsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	// A single worker dequeues strictly in submission order.
	p := New(context.Background(), 1, func(ctx context.Context, task *types.MediaTask) {
		mu.Lock()
		order = append(order, task.ID)
		mu.Unlock()
	})

	tasks := newTasks(10)
	for _, task := range tasks {
		p.Submit(task)
	}
	p.Close()
	p.Wait()

	for i, task := range tasks {
		if order[i] != task.ID {
			t.Fatalf("position %d ran %s, want %s", i, order[i], task.ID)
		}
	}
}

func TestPoolDrainsQueueAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var cancelled atomic.Int64

	p := New(ctx, 2, func(ctx context.Context, task *types.MediaTask) {
		if ctx.Err() != nil {
			cancelled.Add(1)
		}
	})

	cancel()
	for _, task := range newTasks(20) {
		p.Submit(task)
	}
	p.Close()
	p.Wait()

	// Every queued task must still pass through run so it can be
	// accounted as cancelled.
	if got := cancelled.Load(); got != 20 {
		t.Errorf("%d tasks saw the cancelled context, want 20", got)
	}
}

func TestPoolWaitBlocksUntilDone(t *testing.T) {
	release := make(chan struct{})
	p := New(context.Background(), 2, func(ctx context.Context, task *types.MediaTask) {
		<-release
	})
	for _, task := range newTasks(4) {
		p.Submit(task)
	}
	p.Close()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while tasks were still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after tasks finished")
	}
}
