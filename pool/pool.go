package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pool errors
var (
	// ErrRejected is returned when every worker is busy and the queue is full
	ErrRejected = errors.New("worker pool is saturated")
	// ErrStopped is returned when work is submitted to a stopped pool, and to
	// queued work dropped during shutdown
	ErrStopped = errors.New("worker pool is stopped")
)

// Defaults
const (
	DefaultMinWorkers    = 2
	DefaultMaxWorkers    = 50
	DefaultQueueSize     = 200
	DefaultKeepAlive     = 60 * time.Second
	DefaultShutdownGrace = 10 * time.Second
	DefaultShutdownForce = 5 * time.Second
)

// Options configures a Pool. Zero values take the defaults.
type Options struct {
	// MinWorkers are kept alive until shutdown. Values below 2 are raised to 2.
	MinWorkers int
	// MaxWorkers bounds concurrency
	MaxWorkers int
	// QueueSize bounds pending work
	QueueSize int
	// KeepAlive is how long a worker above MinWorkers waits for work before exiting
	KeepAlive time.Duration
	// ShutdownGrace is how long Shutdown waits before cancelling running work
	ShutdownGrace time.Duration
	// ShutdownForce is how long Shutdown waits after cancelling
	ShutdownForce time.Duration
}

func (o Options) withDefaults() Options {
	if o.MinWorkers < DefaultMinWorkers {
		o.MinWorkers = DefaultMinWorkers
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.MaxWorkers < o.MinWorkers {
		o.MaxWorkers = o.MinWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = DefaultShutdownGrace
	}
	if o.ShutdownForce <= 0 {
		o.ShutdownForce = DefaultShutdownForce
	}
	return o
}

// task is a unit of work. abort is called instead of run when the task is
// dropped before it starts.
type task struct {
	ctx   context.Context
	run   func(context.Context)
	abort func(error)
}

// Pool runs blocking calls off the caller's goroutine with bounded
// concurrency and a bounded queue. Workers are plain goroutines and never
// keep the process alive.
type Pool struct {
	opts   Options
	logger zerolog.Logger
	queue  chan *task

	// ctx is cancelled when shutdown gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers int
	busy    int
	stopped bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	drained  chan struct{}
}

// New creates a pool. Workers start on demand.
func New(opts Options, logger zerolog.Logger) *Pool {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		opts:    opts,
		logger:  logger,
		queue:   make(chan *task, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
	}
}

// Options returns the effective configuration
func (p *Pool) Options() Options {
	return p.opts
}

// Submit schedules fn. It never blocks: when the pool and queue are full it
// returns ErrRejected. fn receives a context that ends when ctx ends or the
// pool is forcibly stopped.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context)) error {
	return p.submit(&task{ctx: ctx, run: fn, abort: func(error) {}})
}

func (p *Pool) submit(t *task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}

	if p.workers < p.opts.MinWorkers {
		p.spawn(t, true)
		return nil
	}

	select {
	case p.queue <- t:
		return nil
	default:
	}

	if p.workers < p.opts.MaxWorkers {
		p.spawn(t, false)
		return nil
	}

	p.logger.Warn().
		Int("workers", p.workers).
		Int("queued", len(p.queue)).
		Msg("Background pool saturated, rejecting task")
	return ErrRejected
}

// spawn must be called with mu held
func (p *Pool) spawn(first *task, core bool) {
	p.workers++
	p.wg.Add(1)
	go p.worker(first, core)
}

func (p *Pool) worker(first *task, core bool) {
	defer func() {
		p.mu.Lock()
		p.workers--
		p.mu.Unlock()
		p.wg.Done()
	}()

	p.execute(first)

	var idle *time.Timer
	if !core {
		idle = time.NewTimer(p.opts.KeepAlive)
		defer idle.Stop()
	}

	for {
		if core {
			t, ok := <-p.queue
			if !ok {
				return
			}
			p.execute(t)
			continue
		}

		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.execute(t)
			idle.Reset(p.opts.KeepAlive)
		case <-idle.C:
			return
		}
	}
}

func (p *Pool) execute(t *task) {
	if err := t.ctx.Err(); err != nil {
		t.abort(err)
		return
	}
	if p.ctx.Err() != nil {
		t.abort(ErrStopped)
		return
	}

	ctx, cancel := context.WithCancel(t.ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	p.mu.Lock()
	p.busy++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy--
		p.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Background task panicked")
			t.abort(fmt.Errorf("background task panicked: %v", r))
		}
	}()

	t.run(ctx)
}

// Stats reports the current number of workers, busy workers and queued tasks
func (p *Pool) Stats() (workers, busy, queued int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers, p.busy, len(p.queue)
}

// Shutdown stops accepting work and waits ShutdownGrace for running and
// queued tasks. It then cancels running tasks, drops queued ones with
// ErrStopped and waits ShutdownForce more. Tasks still running after that are
// logged and left behind. ctx cuts either wait short.
func (p *Pool) Shutdown(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()

		go func() {
			p.wg.Wait()
			close(p.drained)
		}()
	})

	if p.wait(ctx, p.opts.ShutdownGrace) {
		p.cancel()
		return
	}

	workers, busy, queued := p.Stats()
	p.logger.Warn().
		Int("busy", busy).
		Int("queued", queued).
		Int("workers", workers).
		Msg("Background tasks still running after grace period, cancelling")
	p.cancel()

	if p.wait(ctx, p.opts.ShutdownForce) {
		return
	}

	workers, busy, _ = p.Stats()
	p.logger.Error().
		Int("busy", busy).
		Int("workers", workers).
		Msg("Background tasks did not terminate")
}

func (p *Pool) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.drained:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
