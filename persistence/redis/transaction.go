package redis

import (
	"context"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
)

// redisDatabase opens transactions backed by a MULTI/EXEC pipeline. Writes
// staged on the pipeline become visible only at commit, which gives the
// checkpoint and deduplication facts of one transition a single atomic
// boundary.
type redisDatabase struct {
	baseDao
}

var _ persistence.Database = new(redisDatabase)

func NewRedisDatabase(conf Config) *redisDatabase {
	return &redisDatabase{baseDao: *newBaseDao(conf)}
}

func NewRedisDatabaseFromClient(client rd.UniversalClient, namespace string) *redisDatabase {
	return &redisDatabase{baseDao: *newBaseDaoFromClient(client, namespace)}
}

func (db *redisDatabase) BeginTransaction() (model.Transaction, error) {
	return &redisTransaction{pipe: db.redisClient.TxPipeline()}, nil
}

type redisTransaction struct {
	mu     sync.Mutex
	pipe   rd.Pipeliner
	closed bool
}

var _ model.Transaction = new(redisTransaction)

func (t *redisTransaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return model.NewProgrammerError("commit on a closed transaction")
	}
	t.closed = true
	if _, err := t.pipe.Exec(context.Background()); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (t *redisTransaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.pipe.Discard()
	return nil
}

// pipeline hands the staging surface to the redis DAOs taking part in the
// transaction.
func (t *redisTransaction) pipeline() (rd.Pipeliner, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, model.NewProgrammerError("write staged on a closed transaction")
	}
	return t.pipe, nil
}

func stagingPipeline(tx model.Transaction) (rd.Pipeliner, error) {
	rtx, ok := tx.(*redisTransaction)
	if !ok {
		return nil, model.NewProgrammerError("transaction %T is not a redis transaction", tx)
	}
	return rtx.pipeline()
}
