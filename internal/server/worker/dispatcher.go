// Package worker runs fire-and-forget background tasks on a bounded queue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// DefaultTimeout applies to tasks when New is given no usable timeout.
const DefaultTimeout = 30 * time.Second

// Task is a unit of background work. The context carries the per-task
// timeout.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Dispatcher feeds a fixed number of pool workers from a bounded channel.
// Submit never blocks the caller.
type Dispatcher struct {
	queue   chan job
	workers *pool.Pool
	timeout time.Duration
	log     logging.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines draining a queue of queueSize tasks. Each
// task runs under its own timeout.
func New(workers, queueSize int, timeout time.Duration, log logging.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &Dispatcher{
		queue:   make(chan job, queueSize),
		workers: pool.New().WithMaxGoroutines(workers),
		timeout: timeout,
		log:     log.With("module", "worker"),
	}
	for i := 0; i < workers; i++ {
		d.workers.Go(d.loop)
	}
	return d
}

func (d *Dispatcher) loop() {
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			d.log.Error(ctx, "task panicked", "task", j.name, "panic", fmt.Sprint(p))
		}
	}()

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		d.log.Error(ctx, "task failed", "task", j.name, "error", err)
		return
	}
	d.log.Debug(ctx, "task done", "task", j.name, "elapsed", time.Since(start))
}

// Submit enqueues fn and reports whether it was accepted. A full queue or a
// closed dispatcher drops the task.
func (d *Dispatcher) Submit(name string, fn Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn(context.Background(), "dispatcher closed, task dropped", "task", name)
		return false
	}

	select {
	case d.queue <- job{name: name, fn: fn}:
		return true
	default:
		d.log.Warn(context.Background(), "queue full, task dropped", "task", name)
		return false
	}
}

// Close stops accepting tasks, lets the workers drain what is queued and
// waits for them.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.workers.Wait()
}
