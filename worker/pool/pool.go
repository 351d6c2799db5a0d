package pool

import (
	"context"
	"sync"

	"imageForge/worker/kafka"
)

// WorkerPool bounds how many task executions run at once across all
// batches. Within one batch the chain already serializes execution; the
// bound protects against many batches running concurrently.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *WorkerPool) Submit(ctx context.Context, msg *kafka.DispatchMessage, handler func(context.Context, *kafka.DispatchMessage) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			handler(ctx, msg)
		case <-ctx.Done():
		}
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
