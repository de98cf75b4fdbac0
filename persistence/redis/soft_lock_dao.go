package redis

import (
	"context"

	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

const SOFT_LOCK_KEY string = "SOFTLOCK"

var _ persistence.SoftLockDao = new(redisSoftLockDao)

type redisSoftLockDao struct {
	baseDao
}

func NewRedisSoftLockDao(conf Config) *redisSoftLockDao {
	return &redisSoftLockDao{baseDao: *newBaseDao(conf)}
}

func NewRedisSoftLockDaoFromClient(client rd.UniversalClient, namespace string) *redisSoftLockDao {
	return &redisSoftLockDao{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (sl *redisSoftLockDao) Lock(lockId uuid.UUID, stateRefs []string) error {
	key := sl.getNamespaceKey(SOFT_LOCK_KEY, lockId.String())
	members := make([]any, 0, len(stateRefs))
	for _, ref := range stateRefs {
		members = append(members, ref)
	}
	if err := sl.redisClient.SAdd(context.Background(), key, members...).Err(); err != nil {
		logger.Error("error in taking soft locks", zap.String("lockId", lockId.String()), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (sl *redisSoftLockDao) Release(lockId uuid.UUID) error {
	key := sl.getNamespaceKey(SOFT_LOCK_KEY, lockId.String())
	if err := sl.redisClient.Del(context.Background(), key).Err(); err != nil {
		logger.Error("error in releasing soft locks", zap.String("lockId", lockId.String()), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (sl *redisSoftLockDao) Held(lockId uuid.UUID) ([]string, error) {
	key := sl.getNamespaceKey(SOFT_LOCK_KEY, lockId.String())
	refs, err := sl.redisClient.SMembers(context.Background(), key).Result()
	if err != nil {
		logger.Error("error in reading soft locks", zap.String("lockId", lockId.String()), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return refs, nil
}
