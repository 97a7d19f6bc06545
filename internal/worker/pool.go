// Package worker runs background tasks on a fixed number of goroutines fed
// by a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no room.
	ErrQueueFull = errors.New("worker queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Handle tracks a submitted task.
type Handle struct {
	name string
	done chan struct{}
	err  error
}

// Done is closed once the task has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task finishes or ctx ends and returns the task's error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task error once Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type job struct {
	task   Task
	handle *Handle
}

// Pool executes tasks in the background. Task failures are logged and kept
// on the handle; they never stop the pool.
type Pool struct {
	queue chan job
	group *errgroup.Group
	ctx   context.Context

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines draining a queue of queueSize. Tasks run on
// a context that is not cancelled by Close, so side effects already started
// are allowed to finish.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		queue: make(chan job, queueSize),
		group: &errgroup.Group{},
		ctx:   context.Background(),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for j := range p.queue {
		j.handle.err = run(p.ctx, j.handle.name, j.task)
		if j.handle.err != nil {
			slog.Warn("Background task failed", "task", j.handle.name, "error", j.handle.err)
		}
		close(j.handle.done)
	}
	return nil
}

func run(ctx context.Context, name string, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()
	return t(ctx)
}

// Submit queues t without blocking and returns its handle.
func (p *Pool) Submit(name string, t Task) (*Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	h := &Handle{name: name, done: make(chan struct{})}
	select {
	case p.queue <- job{task: t, handle: h}:
		return h, nil
	default:
		return nil, fmt.Errorf("submit %s: %w", name, ErrQueueFull)
	}
}

// Close stops accepting tasks, drains the queue and waits for the workers.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	return p.group.Wait()
}
