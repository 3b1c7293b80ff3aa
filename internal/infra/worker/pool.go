package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.TaskQueue = (*Pool)(nil)

var (
	// ErrQueueFull is returned by Submit when every slot is taken.
	ErrQueueFull = errors.New("worker queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker pool stopped")
)

// Task is a unit of background work, e.g. sending a confirmation e-mail.
type Task = func(ctx context.Context) error

// Pool runs fire-and-forget tasks on a fixed set of goroutines. Workers live
// until Stop, not until the Start context ends, so tasks accepted during a
// shutdown grace period still run.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	quit   chan struct{}
	n      int
	logger *zerolog.Logger

	mu     sync.RWMutex // guards closed against concurrent Submit
	closed bool
	base   context.Context
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	lg := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		jobs:   make(chan Task, workers*16),
		quit:   make(chan struct{}),
		n:      workers,
		logger: &lg,
		base:   context.Background(),
	}
}

// Start launches the workers. Tasks see ctx's values but not its
// cancellation; the pool ends only through Stop.
func (p *Pool) Start(ctx context.Context) {
	p.base = context.WithoutCancel(ctx)
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-p.quit:
					p.drain(id)
					return
				case task := <-p.jobs:
					p.run(p.base, id, task)
				}
			}
		}(i)
	}
}

// Stop refuses new work, runs everything already queued and waits for the
// workers. Call it after the producers (the HTTP server) have drained.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) drain(id int) {
	for {
		select {
		case task := <-p.jobs:
			p.run(p.base, id, task)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.logger.Warn().Err(err).Int("worker", id).Msg("task failed")
	}
}

// Submit enqueues task without blocking. It fails once Stop has begun, so
// no task is accepted after the workers' final drain.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// drop when saturated; callers treat background work as best effort
		return ErrQueueFull
	}
}
