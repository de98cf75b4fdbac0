package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/model"
)

func TestDedupDao(t *testing.T) {
	mr := miniredis.RunT(t)
	conf := Config{
		Addrs:     []string{mr.Addr()},
		Namespace: "test",
	}
	dao := NewRedisDedupDao(conf)
	db := NewRedisDatabase(conf)

	senderUUID := uuid.New()
	id := model.SenderDeduplicationId{
		DeduplicationId: model.NewDeduplicationId(),
		SenderUUID:      &senderUUID,
	}

	seen, err := dao.SeenFact(id)
	require.NoError(t, err)
	require.False(t, seen)

	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, dao.RecordFact(tx, id))

	// the fact is not observable before the transition commits
	seen, err = dao.SeenFact(id)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, tx.Commit())
	seen, err = dao.SeenFact(id)
	require.NoError(t, err)
	require.True(t, seen)

	// recording the same fact again is harmless
	tx2, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, dao.RecordFact(tx2, id))
	require.NoError(t, tx2.Commit())
	seen, err = dao.SeenFact(id)
	require.NoError(t, err)
	require.True(t, seen)
}
