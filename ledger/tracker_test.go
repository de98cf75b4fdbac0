package ledger

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *redisTransactionTracker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rd.NewUniversalClient(&rd.UniversalOptions{Addrs: []string{mr.Addr()}})
	return NewRedisTransactionTracker(client, "test")
}

func waitNotified(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case hash := <-ch:
		return hash
	case <-time.After(3 * time.Second):
		t.Fatal("commit notification not delivered")
	}
	return ""
}

func TestSubscribeThenCommit(t *testing.T) {
	tracker := newTestTracker(t)
	notified := make(chan string, 1)
	tracker.Subscribe("tx-1", func(txHash string, err error) {
		require.NoError(t, err)
		notified <- txHash
	})
	// give the subscription goroutine a moment to attach
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, tracker.NotifyCommitted("tx-1"))
	require.Equal(t, "tx-1", waitNotified(t, notified))
}

func TestSubscribeAfterCommit(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.NotifyCommitted("tx-2"))

	notified := make(chan string, 1)
	tracker.Subscribe("tx-2", func(txHash string, err error) {
		require.NoError(t, err)
		notified <- txHash
	})
	require.Equal(t, "tx-2", waitNotified(t, notified))
}
