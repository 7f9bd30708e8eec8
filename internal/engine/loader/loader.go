// Package loader parses VTK files on background workers so the render
// loop never blocks on disk or parsing.
//
// Results come back through a channel the consumer polls once per tick.
// Every job carries the pool generation current at submit time; Cancel
// bumps the generation, and Poll silently drops results from older
// generations, so a superseded load can never overwrite newer state.
package loader

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/pkg/vtk"
)

// Job names one file to parse and the slot its result belongs to.
type Job struct {
	Path  string
	Index int
}

// Result is a finished job. Exactly one of Dataset and Err is set.
type Result struct {
	Job
	Dataset *vtk.Dataset
	Err     error

	gen uint64
}

// Pool runs a fixed set of parser workers over a job queue.
type Pool struct {
	jobs    chan queued
	results chan Result
	quit    chan struct{}
	gen     atomic.Uint64
	wg      sync.WaitGroup
	log     *zap.Logger

	// parse is swapped out in tests
	parse func(path string) (*vtk.Dataset, error)

	closeOnce sync.Once
}

type queued struct {
	Job
	gen uint64
}

// Option adjusts pool construction.
type Option func(*Pool)

// WithLogger attaches a logger for per-job diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithParser replaces the file parser, e.g. for tests or alternate
// formats.
func WithParser(fn func(string) (*vtk.Dataset, error)) Option {
	return func(p *Pool) { p.parse = fn }
}

// New starts a pool with the given worker count and queue depth.
func New(workers, queue int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < workers {
		queue = workers
	}

	p := &Pool{
		jobs:    make(chan queued, queue),
		results: make(chan Result, queue),
		quit:    make(chan struct{}),
		log:     zap.NewNop(),
		parse:   vtk.Load,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		var q queued
		select {
		case <-p.quit:
			return
		case got, ok := <-p.jobs:
			if !ok {
				return
			}
			q = got
		}
		if q.gen != p.gen.Load() {
			// job was cancelled while queued
			continue
		}

		start := time.Now()
		ds, err := p.parse(q.Path)
		if err != nil {
			p.log.Debug("parse failed",
				zap.Int("worker", id),
				zap.String("path", q.Path),
				zap.Error(err))
		} else {
			p.log.Debug("parsed",
				zap.Int("worker", id),
				zap.String("path", q.Path),
				zap.Duration("took", time.Since(start)))
		}

		// the consumer may be gone by the time the result queue has
		// room, so never wedge on the send
		select {
		case p.results <- Result{Job: q.Job, Dataset: ds, Err: err, gen: q.gen}:
		case <-p.quit:
			return
		}
	}
}

// Submit queues a job under the current generation. It blocks when the
// queue is full.
func (p *Pool) Submit(job Job) {
	p.jobs <- queued{Job: job, gen: p.gen.Load()}
}

// Cancel invalidates every queued and in-flight job. Workers keep
// running; their stale results are dropped at Poll.
func (p *Pool) Cancel() {
	p.gen.Add(1)
}

// Poll returns the next current-generation result without blocking.
// Stale results are consumed and discarded.
func (p *Pool) Poll() (Result, bool) {
	for {
		select {
		case r := <-p.results:
			if r.gen != p.gen.Load() {
				continue
			}
			return r, true
		default:
			return Result{}, false
		}
	}
}

// Wait blocks until a current-generation result arrives or the timeout
// elapses.
func (p *Pool) Wait(timeout time.Duration) (Result, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case r := <-p.results:
			if r.gen != p.gen.Load() {
				continue
			}
			return r, true
		case <-deadline.C:
			return Result{}, false
		}
	}
}

// Close stops the workers and waits for them to exit. In-flight parses
// finish; queued jobs and undelivered results are abandoned, so Close
// returns even when nothing is polling. Results already delivered stay
// pollable.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		close(p.jobs)
	})
	p.wg.Wait()
}
