// Package parallel runs mesh and streamline jobs on a fixed set of worker
// goroutines.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is submitted to a closed pool.
var ErrClosed = errors.New("parallel: pool is closed")

// Pool is a pool of goroutines for CPU-bound geometry jobs.
//
// Each worker owns a queue and steals from the others when its own queue is
// empty, which evens out batches where some polylines or fields take far
// longer than others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int

	// queues holds per-worker job queues.
	queues []chan func()

	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool

	// mu orders sends against Close so no job lands on a drained queue.
	mu sync.RWMutex
}

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
			continue
		default:
		}

		if job := p.steal(id); job != nil {
			job()
			continue
		}

		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case job := <-queue:
			job()
		default:
			return
		}
	}
}

func (p *Pool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// that queue is full.
func (p *Pool) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return ErrClosed
	}

	target := 0
	for i := 1; i < p.workers; i++ {
		if len(p.queues[i]) < len(p.queues[target]) {
			target = i
		}
	}
	p.queues[target] <- fn
	return nil
}

// Run distributes jobs round-robin and waits for them. Jobs that have not
// started when ctx is done are skipped; started jobs run to completion.
// Run must not be called from inside a pool job.
func (p *Pool) Run(ctx context.Context, jobs []func()) error {
	if len(jobs) == 0 {
		return ctx.Err()
	}

	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		return ErrClosed
	}

	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, fn := range jobs {
		p.queues[i%p.workers] <- func() {
			defer wg.Done()
			if ctx.Err() == nil {
				fn()
			}
		}
	}
	p.mu.RUnlock()

	wg.Wait()
	return ctx.Err()
}

// Close stops accepting work, runs everything already queued and stops the
// workers. Close is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// Queued returns an approximate count of queued jobs.
func (p *Pool) Queued() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
