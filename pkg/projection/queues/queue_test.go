package queues

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue("projection", 8)
	defer q.Close()

	msg := PartitionMessage{RunID: "r1", Index: 0, Total: 1, Rows: []report.Row{{UsuarioID: "1"}}}
	id, err := q.Enqueue(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	got, ok, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg.RunID, got.RunID)
	assert.Equal(t, "1", got.Rows[0].UsuarioID)
}

func TestMemoryQueue_DrainsAfterClose(t *testing.T) {
	q := NewMemoryQueue("projection", 8)
	_, err := q.Enqueue(context.Background(), PartitionMessage{Index: 0})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	_, ok, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewMemoryQueue("projection", 1)
	require.NoError(t, q.Close())

	_, err := q.Enqueue(context.Background(), PartitionMessage{})
	assert.ErrorIs(t, err, cerrors.ErrQueueClosed)
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue("projection", 1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	q := NewMemoryQueue("projection", 4)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			if _, ok, _ := q.Dequeue(context.Background()); !ok {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := q.Enqueue(context.Background(), PartitionMessage{Index: j}); err != nil {
					assert.ErrorIs(t, err, cerrors.ErrQueueClosed)
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, q.Close())
	wg.Wait()
	<-drained
}

func TestMemoryQueue_CloseIdempotent(t *testing.T) {
	q := NewMemoryQueue("projection", 1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
