/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workqueue

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Queue when the backlog is at capacity.
	ErrQueueFull = errors.New("workqueue: backlog is full")

	// ErrShutdown is returned by Queue once the pool stopped accepting work.
	ErrShutdown = errors.New("workqueue: pool is shut down")

	errAlreadyRunning = errors.New("workqueue: pool is already running")
)

// Task is a unit of background work.
type Task interface {
	// Name identifies the task in logs.
	Name() string

	// Run performs the work. Errors must be handled by the task itself.
	Run(ctx context.Context)
}

type funcTask struct {
	name string
	f    func(context.Context)
}

func (t funcTask) Name() string            { return t.name }
func (t funcTask) Run(ctx context.Context) { t.f(ctx) }

// Func adapts a function into a Task.
func Func(name string, f func(context.Context)) Task {
	return funcTask{name: name, f: f}
}

type item struct {
	task   Task
	queued time.Time
}

// Pool runs queued tasks on a fixed number of workers.
type Pool struct {
	name        string
	concurrency int
	clock       clockwork.Clock

	// mu guards closing items against concurrent sends.
	mu      sync.RWMutex
	closed  bool
	items   chan item
	running atomic.Bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithName sets the pool name used in metrics and logs.
func WithName(name string) Option {
	return func(p *Pool) {
		p.name = name
	}
}

// WithClock overrides the clock used to time tasks.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pool) {
		p.clock = c
	}
}

// NewPool creates a pool with the given number of workers and backlog capacity.
func NewPool(concurrency, backlog int, opts ...Option) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if backlog < 0 {
		backlog = 0
	}
	p := &Pool{
		name:        "default",
		concurrency: concurrency,
		clock:       clockwork.NewRealClock(),
		items:       make(chan item, backlog),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue adds a task to the backlog. It never blocks.
func (p *Pool) Queue(ctx context.Context, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		mRejectedTasks.WithLabelValues(p.name, "shutdown", env.KnativeServiceName, env.KnativeRevisionName).Inc()
		return ErrShutdown
	}

	select {
	case p.items <- item{task: t, queued: p.clock.Now()}:
		mAddedTasks.WithLabelValues(p.name, env.KnativeServiceName, env.KnativeRevisionName).Inc()
		mQueuedTasks.WithLabelValues(p.name, env.KnativeServiceName, env.KnativeRevisionName).Inc()
		clog.FromContext(ctx).Debugf("Queued task %q", t.Name())
		return nil
	default:
		mRejectedTasks.WithLabelValues(p.name, "full", env.KnativeServiceName, env.KnativeRevisionName).Inc()
		return ErrQueueFull
	}
}

// Len returns the number of tasks waiting for a worker.
func (p *Pool) Len() int {
	return len(p.items)
}

// Run starts the workers and blocks until ctx is cancelled. It then stops
// accepting tasks, runs what is already queued and returns.
// Tasks run on a context that is not cancelled with ctx.
func (p *Pool) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	workCtx := context.WithoutCancel(ctx)
	eg := errgroup.Group{}
	for range p.concurrency {
		eg.Go(func() error {
			for it := range p.items {
				p.process(workCtx, it)
			}
			return nil
		})
	}
	clog.InfoContextf(ctx, "Started workqueue %q with %d workers", p.name, p.concurrency)

	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	close(p.items)
	p.mu.Unlock()

	clog.InfoContextf(workCtx, "Draining %d queued tasks from workqueue %q", len(p.items), p.name)
	return eg.Wait()
}

func (p *Pool) process(ctx context.Context, it item) {
	labels := []string{p.name, env.KnativeServiceName, env.KnativeRevisionName}
	mQueuedTasks.WithLabelValues(labels...).Dec()

	start := p.clock.Now()
	mWaitLatency.WithLabelValues(labels...).Observe(start.Sub(it.queued).Seconds())
	mInProgressTasks.WithLabelValues(labels...).Inc()

	defer func() {
		mInProgressTasks.WithLabelValues(labels...).Dec()
		mWorkLatency.WithLabelValues(labels...).Observe(p.clock.Since(start).Seconds())
		if r := recover(); r != nil {
			mPanickedTasks.WithLabelValues(labels...).Inc()
			clog.ErrorContextf(ctx, "Task %q panicked: %v\n%s", it.task.Name(), r, debug.Stack())
		}
	}()

	it.task.Run(ctx)
}
