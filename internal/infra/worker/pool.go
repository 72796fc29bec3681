// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrQueueFull is returned when no queue slot frees up in time.
	ErrQueueFull = errors.New("worker queue full")
	// ErrPoolStopped is returned for tasks submitted after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// A small worker pool that runs submitted tasks.

type Task func(ctx context.Context) error

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
	log  *zerolog.Logger

	stopOnce sync.Once
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, workers*4), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.log.Debug().Int("worker", id).Err(err).Msg("task finished with error")
					}
				}
			}
		}(i)
	}
}

// Stop waits for running tasks, then hands every task still queued a
// canceled context so none is silently lost.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.drain()
	})
}

// SubmitWait enqueues task, waiting for a free slot until ctx ends. It
// returns ErrQueueFull if ctx ends first and ErrPoolStopped after Stop.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case p.jobs <- task:
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ErrQueueFull
	}
	p.afterEnqueue()
	return nil
}

// afterEnqueue covers a Stop that raced the enqueue: quit is closed before
// Stop drains, so a task that may have landed after the drain is run here.
func (p *Pool) afterEnqueue() {
	select {
	case <-p.quit:
		p.drain()
	default:
	}
}

func (p *Pool) drain() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for {
		select {
		case task := <-p.jobs:
			if task != nil {
				_ = task(ctx)
			}
		default:
			return
		}
	}
}
