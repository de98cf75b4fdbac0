package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

var _ persistence.DelayQueue = new(redisDelayQueue)

// redisDelayQueue holds messages in a sorted set scored by release time.
type redisDelayQueue struct {
	baseDao
}

func NewRedisDelayQueue(conf Config) *redisDelayQueue {
	return &redisDelayQueue{baseDao: *newBaseDao(conf)}
}

func NewRedisDelayQueueFromClient(client rd.UniversalClient, namespace string) *redisDelayQueue {
	return &redisDelayQueue{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (rq *redisDelayQueue) Push(queueName string, partition string, message []byte) error {
	return rq.PushWithDelay(queueName, partition, 0, message)
}

func (rq *redisDelayQueue) PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error {
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	releaseAt := time.Now().Add(delay).UnixMilli()
	member := rd.Z{
		Score:  float64(releaseAt),
		Member: message,
	}
	if err := rq.redisClient.ZAdd(ctx, key, member).Err(); err != nil {
		logger.Error("error while push to redis delay queue", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisDelayQueue) Pop(queueName string, partition string) ([]string, error) {
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	currentTime := time.Now().UnixMilli()
	pipe := rq.redisClient.Pipeline()

	opt := &rd.ZRangeBy{
		Min: strconv.Itoa(0),
		Max: strconv.FormatInt(currentTime, 10),
	}
	zr := pipe.ZRangeByScore(ctx, key, opt)
	pipe.ZRemRangeByScore(ctx, key, strconv.Itoa(0), strconv.FormatInt(currentTime, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error while pop from redis delay queue", zap.String("queue", key), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}

	res, err := zr.Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		logger.Error("error while pop from redis delay queue", zap.String("queue", key), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
