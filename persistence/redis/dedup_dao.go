package redis

import (
	"context"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

const DEDUP_KEY string = "DEDUP"

// receipt facts outlive any plausible broker redelivery window
const dedupFactTTL = 7 * 24 * time.Hour

var _ persistence.DeduplicationFactDao = new(redisDedupDao)

type redisDedupDao struct {
	baseDao
}

func NewRedisDedupDao(conf Config) *redisDedupDao {
	return &redisDedupDao{baseDao: *newBaseDao(conf)}
}

func NewRedisDedupDaoFromClient(client rd.UniversalClient, namespace string) *redisDedupDao {
	return &redisDedupDao{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (dd *redisDedupDao) RecordFact(tx model.Transaction, id model.SenderDeduplicationId) error {
	pipe, err := stagingPipeline(tx)
	if err != nil {
		return err
	}
	key := dd.getNamespaceKey(DEDUP_KEY, id.String())
	pipe.SetNX(context.Background(), key, 1, dedupFactTTL)
	return nil
}

func (dd *redisDedupDao) SeenFact(id model.SenderDeduplicationId) (bool, error) {
	key := dd.getNamespaceKey(DEDUP_KEY, id.String())
	n, err := dd.redisClient.Exists(context.Background(), key).Result()
	if err != nil {
		logger.Error("error in reading deduplication fact", zap.String("id", id.String()), zap.Error(err))
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return n > 0, nil
}
