package ledger

import (
	"context"
	"fmt"

	rd "github.com/go-redis/redis/v9"
	"github.com/tommyyama2020/corda/logger"
	"go.uber.org/zap"
)

// TransactionTracker delivers ledger commit notifications. Subscribe arms a
// callback and returns immediately; the callback fires exactly once, with
// the transaction hash on commit or an error if the subscription fails.
type TransactionTracker interface {
	Subscribe(txHash string, fn func(txHash string, err error))
	NotifyCommitted(txHash string) error
}

const committedSetKey = "committed"
const commitChannelPrefix = "txcommit"

var _ TransactionTracker = new(redisTransactionTracker)

// redisTransactionTracker rides commit notifications over redis pub/sub,
// with a committed set so subscribers arriving after the commit are still
// notified.
type redisTransactionTracker struct {
	client    rd.UniversalClient
	namespace string
}

func NewRedisTransactionTracker(client rd.UniversalClient, namespace string) *redisTransactionTracker {
	return &redisTransactionTracker{
		client:    client,
		namespace: namespace,
	}
}

func (t *redisTransactionTracker) key(parts ...string) string {
	key := t.namespace
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (t *redisTransactionTracker) Subscribe(txHash string, fn func(txHash string, err error)) {
	ctx := context.Background()
	channel := t.key(commitChannelPrefix, txHash)
	sub := t.client.Subscribe(ctx, channel)
	go func() {
		defer sub.Close()
		// the commit may have landed before the subscription
		committed, err := t.client.SIsMember(ctx, t.key(committedSetKey), txHash).Result()
		if err != nil {
			fn("", fmt.Errorf("transaction subscription failed: %w", err))
			return
		}
		if committed {
			fn(txHash, nil)
			return
		}
		if _, err := sub.ReceiveMessage(ctx); err != nil {
			fn("", fmt.Errorf("transaction subscription failed: %w", err))
			return
		}
		fn(txHash, nil)
	}()
}

func (t *redisTransactionTracker) NotifyCommitted(txHash string) error {
	ctx := context.Background()
	if err := t.client.SAdd(ctx, t.key(committedSetKey), txHash).Err(); err != nil {
		return err
	}
	if err := t.client.Publish(ctx, t.key(commitChannelPrefix, txHash), txHash).Err(); err != nil {
		return err
	}
	logger.Info("transaction committed", zap.String("txHash", txHash))
	return nil
}
