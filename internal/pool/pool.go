// Package pool runs download tasks on a bounded set of workers fed from
// an unbounded FIFO queue, so submission never blocks and never drops.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/scour-dl/scour/internal/engine/types"
)

// RunFunc executes one task to a terminal state. It must observe ctx
// promptly; after cancellation it is still called for queued tasks so
// they can be marked cancelled.
type RunFunc func(ctx context.Context, task *types.MediaTask)

// Pool is a fixed-size worker pool with FIFO admission.
type Pool struct {
	ctx context.Context
	run RunFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*types.MediaTask
	closed bool

	tasks   sync.WaitGroup // one per submitted task
	workers sync.WaitGroup
	active  atomic.Int64
}

// New starts size workers executing run.
func New(ctx context.Context, size int, run RunFunc) *Pool {
	p := &Pool{ctx: ctx, run: run}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.workers.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues a task. Tasks are handed to workers in submission
// order. Submitting after Close is a programming error.
func (p *Pool) Submit(task *types.MediaTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("pool: submit after close")
	}
	p.tasks.Add(1)
	p.queue = append(p.queue, task)
	p.cond.Signal()
}

// Close marks the queue complete. Workers exit once it drains.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Wait blocks until every submitted task reached a terminal state.
func (p *Pool) Wait() {
	p.tasks.Wait()
	p.workers.Wait()
}

// Active returns the number of tasks currently being executed.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

func (p *Pool) next() *types.MediaTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil
	}
	task := p.queue[0]
	p.queue = p.queue[1:]
	return task
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for {
		task := p.next()
		if task == nil {
			return
		}
		p.active.Add(1)
		p.run(p.ctx, task)
		p.active.Add(-1)
		p.tasks.Done()
	}
}
