package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

const CHECKPOINT_KEY string = "CHECKPOINT"

var _ persistence.CheckpointStorage = new(redisCheckpointStore)

// redisCheckpointStore keeps serialized checkpoints in a hash keyed by flow
// id. Writes are staged on the caller's transaction pipeline; the
// add/update distinction is checked against committed state at staging
// time.
type redisCheckpointStore struct {
	baseDao
}

func NewRedisCheckpointStore(conf Config) *redisCheckpointStore {
	return &redisCheckpointStore{baseDao: *newBaseDao(conf)}
}

func NewRedisCheckpointStoreFromClient(client rd.UniversalClient, namespace string) *redisCheckpointStore {
	return &redisCheckpointStore{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (cs *redisCheckpointStore) AddCheckpoint(tx model.Transaction, id model.FlowId, data []byte) error {
	pipe, err := stagingPipeline(tx)
	if err != nil {
		return err
	}
	key := cs.getNamespaceKey(CHECKPOINT_KEY)
	ctx := context.Background()
	exists, err := cs.redisClient.HExists(ctx, key, string(id)).Result()
	if err != nil {
		logger.Error("error in checking checkpoint existence", zap.String("flowId", string(id)), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if exists {
		return persistence.StorageLayerError{Message: "checkpoint already added for flow " + string(id)}
	}
	pipe.HSet(ctx, key, string(id), data)
	return nil
}

func (cs *redisCheckpointStore) UpdateCheckpoint(tx model.Transaction, id model.FlowId, data []byte) error {
	pipe, err := stagingPipeline(tx)
	if err != nil {
		return err
	}
	key := cs.getNamespaceKey(CHECKPOINT_KEY)
	ctx := context.Background()
	exists, err := cs.redisClient.HExists(ctx, key, string(id)).Result()
	if err != nil {
		logger.Error("error in checking checkpoint existence", zap.String("flowId", string(id)), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if !exists {
		return persistence.StorageLayerError{Message: "no checkpoint to update for flow " + string(id)}
	}
	pipe.HSet(ctx, key, string(id), data)
	return nil
}

func (cs *redisCheckpointStore) RemoveCheckpoint(tx model.Transaction, id model.FlowId) error {
	pipe, err := stagingPipeline(tx)
	if err != nil {
		return err
	}
	key := cs.getNamespaceKey(CHECKPOINT_KEY)
	pipe.HDel(context.Background(), key, string(id))
	return nil
}

func (cs *redisCheckpointStore) GetCheckpoint(id model.FlowId) ([]byte, error) {
	key := cs.getNamespaceKey(CHECKPOINT_KEY)
	data, err := cs.redisClient.HGet(context.Background(), key, string(id)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.StorageLayerError{Message: "no checkpoint for flow " + string(id)}
		}
		logger.Error("error in reading checkpoint", zap.String("flowId", string(id)), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return []byte(data), nil
}
