package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arkilian/splitter/internal/partition"
	"github.com/arkilian/splitter/internal/queue"
	"github.com/arkilian/splitter/pkg/types"
)

// ConsumerStats aggregates the outcome of every task handled by the pool.
type ConsumerStats struct {
	Processed  int64
	Appended   int64
	Duplicates int64
	Failed     int64
}

// Pool is a fixed set of workers draining the task queue into the registry.
type Pool struct {
	workers  int
	queue    *queue.Queue[types.Task]
	registry *partition.Registry
	errs     chan<- error

	wg         sync.WaitGroup
	started    atomic.Bool
	processed  atomic.Int64
	appended   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewPool creates a pool of n workers. Per-task failures are sent to errs,
// which must be drained by the caller until Wait returns.
func NewPool(n int, q *queue.Queue[types.Task], registry *partition.Registry, errs chan<- error) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{
		workers:  n,
		queue:    q,
		registry: registry,
		errs:     errs,
	}
}

// Start launches the workers. It must be called once.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Wait blocks until every worker has seen the queue closed and drained.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns the pool counters. Call after Wait for final values.
func (p *Pool) Stats() ConsumerStats {
	return ConsumerStats{
		Processed:  p.processed.Load(),
		Appended:   p.appended.Load(),
		Duplicates: p.duplicates.Load(),
		Failed:     p.failed.Load(),
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	for {
		task, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.handle(id, task)
	}
}

// handle never retries; a failed task is reported and dropped.
func (p *Pool) handle(id int, task types.Task) {
	p.processed.Add(1)

	sink, err := p.registry.Acquire(task.Key)
	if err != nil {
		p.report(id, task, err)
		return
	}

	written, err := sink.Offer(task.Record)
	if err != nil {
		p.report(id, task, err)
		return
	}

	if written {
		p.appended.Add(1)
	} else {
		p.duplicates.Add(1)
	}
}

func (p *Pool) report(id int, task types.Task, err error) {
	p.failed.Add(1)
	p.errs <- &TaskError{Worker: id, Task: task, Err: err}
}

// TaskError describes a task that could not be stored.
type TaskError struct {
	Worker int
	Task   types.Task
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("worker %d: key %q: record %q: %v", e.Worker, e.Task.Key.String(), e.Task.Record.String(), e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
