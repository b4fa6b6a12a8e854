package worker

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"

	"sstranslate/src/session"
)

// Job is one translation run. It must honor ctx.
type Job func(ctx context.Context) (session.Result, error)

// ResultCallback is invoked on job completion (from a worker goroutine).
// The event loop passes a closure that posts back into the loop.
type ResultCallback func(res session.Result, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan task
	wg   sync.WaitGroup
	once sync.Once
}

type task struct {
	ctx context.Context
	job Job
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan task, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for t := range p.jobs {
				log.Printf("Worker %d: starting job", id)
				res, err := run(t)
				log.Printf("Worker %d: job finished, text length=%d, err=%v", id, len(res.TranslatedText), err)
				t.cb(res, err)
			}
		}(i)
	}
}

// run executes one job and turns a panic into an error so the worker survives.
func run(t task) (res session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: job panicked: %v\n%s", r, debug.Stack())
			res = session.Result{}
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	if err := t.ctx.Err(); err != nil {
		return session.Result{}, err
	}
	return t.job(t.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, job Job, cb ResultCallback) bool {
	if cb == nil {
		cb = func(session.Result, error) {}
	}
	select {
	case p.jobs <- task{ctx: ctx, job: job, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
