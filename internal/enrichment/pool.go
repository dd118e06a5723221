// internal/enrichment/pool.go
package enrichment

import (
	"context"
	"errors"
	"sync"

	"inmo-workers/internal/common/logger"
)

// ErrQueueFull is returned when the submission queue is saturated. Callers
// record the task as failed instead of blocking the request path.
var ErrQueueFull = errors.New("enrichment queue full")

// Pool is a bounded worker pool for detached enrichment tasks. Tasks run
// outside any request context: each one gets its own timeout and writes its
// terminal state to the task store.
type Pool struct {
	jobs   chan func(context.Context)
	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
	logger logger.Logger
}

func NewPool(size, queueSize int, log logger.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan func(context.Context), queueSize),
		cancel: cancel,
		logger: log.WithFields(map[string]interface{}{"component": "enrichment-pool"}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job(ctx)
		}
	}
}

// Submit enqueues a task without blocking. A full queue is a hard no: the
// caller marks the task as errored immediately.
func (p *Pool) Submit(job func(context.Context)) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		p.logger.Warn("rejecting enrichment task, queue full", map[string]interface{}{
			"queueSize": cap(p.jobs),
		})
		return ErrQueueFull
	}
}

// Shutdown stops accepting work and waits for in-flight tasks.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		p.cancel()
	})
}
