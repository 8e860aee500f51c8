package queues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

// Redis key prefixes.
const (
	keyPrefixQueue   = "queue:"
	keyPrefixMessage = "msg:"
)

// redisPollInterval is how long Dequeue sleeps when the queue is empty.
const redisPollInterval = 100 * time.Millisecond

// messageRetention bounds how long an unconsumed partition payload survives.
const messageRetention = time.Hour

// RedisQueue implements Queue on a Redis sorted set. The score is the
// partition index, so partitions drain in order even with several producers.
type RedisQueue struct {
	client *redis.Client
	name   string

	closeCtx context.Context
	cancel   context.CancelFunc
}

// NewRedisQueue creates a Redis-backed partition queue.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{client: client, name: name, closeCtx: ctx, cancel: cancel}
}

func (q *RedisQueue) Name() string {
	return q.name
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg PartitionMessage) (string, error) {
	if err := q.closeCtx.Err(); err != nil {
		return "", cerrors.ErrQueueClosed
	}

	messageID := uuid.NewString()
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshaling partition: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.messageKey(messageID), payload, messageRetention)
	pipe.ZAdd(ctx, q.queueKey(), redis.Z{Score: float64(msg.Index), Member: messageID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueueing partition: %w", err)
	}
	return messageID, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (PartitionMessage, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return PartitionMessage{}, false, err
		}

		result, err := q.client.ZPopMin(ctx, q.queueKey(), 1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return PartitionMessage{}, false, fmt.Errorf("popping partition: %w", err)
		}
		if len(result) == 0 {
			if q.closeCtx.Err() != nil {
				return PartitionMessage{}, false, nil
			}
			select {
			case <-time.After(redisPollInterval):
				continue
			case <-ctx.Done():
				return PartitionMessage{}, false, ctx.Err()
			}
		}

		messageID, _ := result[0].Member.(string)
		payload, err := q.client.GetDel(ctx, q.messageKey(messageID)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Payload expired; skip the orphaned entry.
			continue
		}
		if err != nil {
			return PartitionMessage{}, false, fmt.Errorf("reading partition payload: %w", err)
		}

		var msg PartitionMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return PartitionMessage{}, false, cerrors.NewParseError("partition", string(payload), err)
		}
		return msg, true, nil
	}
}

func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueKey()).Result()
}

func (q *RedisQueue) Close() error {
	q.cancel()
	return nil
}

func (q *RedisQueue) queueKey() string {
	return keyPrefixQueue + q.name
}

func (q *RedisQueue) messageKey(id string) string {
	return keyPrefixMessage + q.name + ":" + id
}

var _ Queue = (*RedisQueue)(nil)
