// Package queues carries row partitions between the projection engine and
// its workers. The in-memory queue serves single-process runs; the Redis
// queue serves distributed ones.
package queues

import (
	"context"
	"fmt"
	"sync"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

// PartitionMessage is one partition of report rows in flight. Index and
// Total let the engine reassemble output in order regardless of completion
// order.
type PartitionMessage struct {
	RunID string       `json:"run_id"`
	Index int          `json:"index"`
	Total int          `json:"total"`
	Rows  []report.Row `json:"rows"`
}

// Queue moves partition messages from the engine to workers. Dequeue blocks
// until a message arrives, the queue closes, or the context ends; the second
// return is false once the queue is closed and drained.
type Queue interface {
	Name() string
	Enqueue(ctx context.Context, msg PartitionMessage) (string, error)
	Dequeue(ctx context.Context) (PartitionMessage, bool, error)
	Depth(ctx context.Context) (int64, error)
	Close() error
}

// MemoryQueue is the channel-backed in-process queue.
type MemoryQueue struct {
	name string
	ch   chan PartitionMessage

	mu     sync.Mutex
	closed bool
	next   int
}

// NewMemoryQueue creates an in-memory queue with the given buffer capacity.
func NewMemoryQueue(name string, capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{name: name, ch: make(chan PartitionMessage, capacity)}
}

func (q *MemoryQueue) Name() string {
	return q.name
}

// Enqueue sends under the mutex so Close cannot close the channel between
// the closed check and the send.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg PartitionMessage) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", cerrors.ErrQueueClosed
	}

	select {
	case q.ch <- msg:
		q.next++
		return fmt.Sprintf("%s:%d", q.name, q.next), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (PartitionMessage, bool, error) {
	select {
	case msg, ok := <-q.ch:
		if !ok {
			return PartitionMessage{}, false, nil
		}
		return msg, true, nil
	case <-ctx.Done():
		return PartitionMessage{}, false, ctx.Err()
	}
}

func (q *MemoryQueue) Depth(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
