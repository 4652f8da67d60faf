package store

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/roach88/inkwell/internal/queue"
)

// WorkerPool runs jobs on a fixed set of goroutines fed by an unbounded
// queue. Submit never blocks, so the owner goroutine can dispatch freely.
type WorkerPool struct {
	jobs *queue.Queue[func()]
	wg   sync.WaitGroup
}

// NewWorkerPool starts n workers. n <= 0 means runtime.NumCPU().
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &WorkerPool{jobs: queue.New[func()]()}
	p.wg.Add(n)
	for range n {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		job, ok := p.jobs.Dequeue()
		if !ok {
			return
		}
		p.run(job)
	}
}

func (p *WorkerPool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker job panicked", "panic", r)
		}
	}()
	job()
}

// Submit queues job. Returns false once the pool is closed.
func (p *WorkerPool) Submit(job func()) bool {
	return p.jobs.Enqueue(job)
}

// Pending returns the number of jobs not yet picked up.
func (p *WorkerPool) Pending() int { return p.jobs.Len() }

// Close stops accepting jobs and waits for queued ones to finish.
func (p *WorkerPool) Close() {
	p.jobs.Close()
	p.wg.Wait()
}
