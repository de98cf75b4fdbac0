package vault

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	rdimpl "github.com/tommyyama2020/corda/persistence/redis"
)

func TestSoftLockLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	dao := rdimpl.NewRedisSoftLockDao(rdimpl.Config{
		Addrs:     []string{mr.Addr()},
		Namespace: "test",
	})
	m := NewSoftLockManager(dao)
	lockId := uuid.New()

	require.NoError(t, m.Lock(lockId, []string{"ref-1", "ref-2"}))
	held, err := m.Held(lockId)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ref-1", "ref-2"}, held)

	require.NoError(t, m.ReleaseSoftLocks(lockId))
	held, err = m.Held(lockId)
	require.NoError(t, err)
	require.Empty(t, held)

	// releasing again is harmless
	require.NoError(t, m.ReleaseSoftLocks(lockId))

	// locking nothing is a no-op
	require.NoError(t, m.Lock(uuid.New(), nil))
}
