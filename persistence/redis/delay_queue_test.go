package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestDelayQueue(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, queue *redisDelayQueue,
	){
		"test simple push":     testPushPop,
		"test push with delay": testPushPopDelay,
	} {
		t.Run(scenario, func(t *testing.T) {
			mr := miniredis.RunT(t)
			conf := Config{
				Addrs:     []string{mr.Addr()},
				Namespace: "test",
			}
			fn(t, NewRedisDelayQueue(conf))
		})
	}
}

func testPushPop(t *testing.T, queue *redisDelayQueue) {
	err := queue.Push("test-delay", "0", []byte("test_msg1"))
	require.NoError(t, err)

	res, err := queue.Pop("test-delay", "0")
	require.NoError(t, err)
	require.Equal(t, []string{"test_msg1"}, res)

	res, err = queue.Pop("test-delay", "0")
	require.NoError(t, err)
	require.Empty(t, res)
}

func testPushPopDelay(t *testing.T, queue *redisDelayQueue) {
	err := queue.PushWithDelay("test-delay", "0", 500*time.Millisecond, []byte("test_msg2"))
	require.NoError(t, err)

	res, err := queue.Pop("test-delay", "0")
	require.NoError(t, err)
	require.Empty(t, res, "message must stay hidden until its deadline")

	time.Sleep(600 * time.Millisecond)
	res, err = queue.Pop("test-delay", "0")
	require.NoError(t, err)
	require.Equal(t, []string{"test_msg2"}, res)
}
