// Package worker runs fire-and-forget background jobs on a fixed number
// of goroutines behind a bounded queue. Jobs that cannot be queued are
// dropped rather than blocking the caller.
package worker

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Pool executes submitted jobs asynchronously
type Pool struct {
	jobs     chan func()
	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	dropped  atomic.Int64
}

// NewPool starts size worker goroutines with a queue of queueSize jobs
func NewPool(size, queueSize int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}

	p := &Pool{jobs: make(chan func(), queueSize)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.safeRun(job)
	}
}

func (p *Pool) safeRun(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("background job panicked")
		}
	}()
	job()
}

// Submit enqueues a job without blocking. It returns false and drops the
// job when the queue is full or the pool is stopped.
func (p *Pool) Submit(job func()) bool {
	if job == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		p.dropped.Add(1)
		log.Warn().Int64("dropped_total", p.dropped.Load()).Msg("background job queue full, dropping job")
		return false
	}
}

// Dropped returns the number of jobs rejected so far
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Stop drains queued jobs and waits for workers to exit. Later submissions
// are rejected.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
