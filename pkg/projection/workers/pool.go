// Package workers runs the projection worker pool: a fixed set of goroutines
// draining the partition queue until it is closed and empty.
package workers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/convrep/pkg/logging"
	"github.com/otherjamesbrown/convrep/pkg/projection/queues"
)

// Handler processes one partition.
type Handler func(ctx context.Context, msg queues.PartitionMessage) error

// Pool drains a partition queue with a fixed number of workers.
type Pool struct {
	ID      string
	Count   int
	Queue   queues.Queue
	Handler Handler
	Log     logging.Logger

	processed atomic.Int64
	failed    atomic.Int64
	wg        sync.WaitGroup
}

// NewPool creates a pool; count defaults to 4.
func NewPool(count int, queue queues.Queue, handler Handler, log logging.Logger) *Pool {
	if count <= 0 {
		count = 4
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Pool{
		ID:      uuid.NewString(),
		Count:   count,
		Queue:   queue,
		Handler: handler,
		Log:     log,
	}
}

// Start launches the workers. They exit when the queue is closed and
// drained, or when the context ends.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.Count; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.run(ctx, worker)
		}(i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats reports processed and failed partition counts.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

func (p *Pool) run(ctx context.Context, worker int) {
	log := p.Log.With(logging.F("pool_id", p.ID), logging.F("worker", worker))
	for {
		msg, ok, err := p.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", logging.Err(err))
			p.failed.Add(1)
			continue
		}
		if !ok {
			return
		}

		if err := p.Handler(ctx, msg); err != nil {
			log.Error("partition failed",
				logging.F("partition", msg.Index),
				logging.Err(err))
			p.failed.Add(1)
			continue
		}
		p.processed.Add(1)
	}
}
