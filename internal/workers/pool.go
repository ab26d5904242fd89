package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var ErrPoolStopped = errors.New("workers: pool stopped")

// Task is a unit of work run by a pool worker
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue
type Pool struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan Task
	size   int

	// guards closed against sends on a closed queue
	mu     sync.RWMutex
	closed bool

	busy atomic.Int32
	wg   sync.WaitGroup
}

func NewPool(ctx context.Context, name string, size, queueSize int) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan Task, queueSize),
		size:   size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	return p
}

func (p *Pool) worker(i int) {
	name := fmt.Sprintf("%s #%d", p.name, i)
	log.Debugf("%s started", name)
	defer log.Debugf("%s finished", name)
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok || p.ctx.Err() != nil {
				return
			}
			p.busy.Add(1)
			t(p.ctx)
			p.busy.Add(-1)
		}
	}
}

// TrySubmit queues a task without blocking. It returns false when
// the queue is full or the pool is stopped.
func (p *Pool) TrySubmit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Submit queues a task, waiting for room
func (p *Pool) Submit(ctx context.Context, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	select {
	case p.queue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Stop lets the workers finish the queued tasks and waits for them
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

// Kill drops the queued tasks and waits for the running ones
func (p *Pool) Kill() {
	p.cancel()
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Size() int {
	return p.size
}

// Backlog is the number of queued tasks not yet picked up
func (p *Pool) Backlog() int {
	return len(p.queue)
}

func (p *Pool) Busy() int {
	return int(p.busy.Load())
}
