package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

var _ persistence.Queue = new(redisQueue)

// redisQueue is an at-least-once list queue. Pop moves entries onto a
// pending list instead of deleting them; Ack removes them from pending.
// Entries left in pending by a crash stay there: nothing in this type
// moves them back onto the queue for redelivery.
type redisQueue struct {
	baseDao
}

func NewRedisQueue(conf Config) *redisQueue {
	return &redisQueue{baseDao: *newBaseDao(conf)}
}

func NewRedisQueueFromClient(client rd.UniversalClient, namespace string) *redisQueue {
	return &redisQueue{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (rq *redisQueue) pendingKey(queueName string, partition string) string {
	return rq.getNamespaceKey(queueName, partition, "pending")
}

func (rq *redisQueue) Push(queueName string, partition string, message []byte) error {
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	if err := rq.redisClient.LPush(ctx, key, message).Err(); err != nil {
		logger.Error("error while push to redis list", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisQueue) Pop(queueName string, partition string, batchSize int) ([]string, error) {
	key := rq.getNamespaceKey(queueName, partition)
	pending := rq.pendingKey(queueName, partition)
	ctx := context.Background()
	result := make([]string, 0, batchSize)
	for len(result) < batchSize {
		item, err := rq.redisClient.LMove(ctx, key, pending, "RIGHT", "LEFT").Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				break
			}
			logger.Error("error while pop from redis list", zap.String("queue", key), zap.Error(err))
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		result = append(result, item)
	}
	return result, nil
}

func (rq *redisQueue) Ack(queueName string, partition string, message []byte) error {
	pending := rq.pendingKey(queueName, partition)
	ctx := context.Background()
	if err := rq.redisClient.LRem(ctx, pending, 1, message).Err(); err != nil {
		logger.Error("error while ack on redis list", zap.String("queue", pending), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
