package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
)

func newTestStore(t *testing.T) (*redisCheckpointStore, *redisDatabase) {
	t.Helper()
	mr := miniredis.RunT(t)
	conf := Config{
		Addrs:     []string{mr.Addr()},
		Namespace: "test",
	}
	return NewRedisCheckpointStore(conf), NewRedisDatabase(conf)
}

func TestCheckpointStore(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *redisCheckpointStore, db *redisDatabase,
	){
		"add then read":                   testAddAndGet,
		"add is visible only at commit":   testAddVisibleAtCommit,
		"add twice fails":                 testAddTwice,
		"update without add fails":        testUpdateMissing,
		"rollback discards staged writes": testRollbackDiscards,
		"remove deletes the checkpoint":   testRemove,
	} {
		t.Run(scenario, func(t *testing.T) {
			store, db := newTestStore(t)
			fn(t, store, db)
		})
	}
}

func addCheckpoint(t *testing.T, store *redisCheckpointStore, db *redisDatabase, id model.FlowId, data []byte) {
	t.Helper()
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, store.AddCheckpoint(tx, id, data))
	require.NoError(t, tx.Commit())
}

func testAddAndGet(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	addCheckpoint(t, store, db, "f1", []byte("checkpoint-bytes"))
	data, err := store.GetCheckpoint("f1")
	require.NoError(t, err)
	require.Equal(t, []byte("checkpoint-bytes"), data)
}

func testAddVisibleAtCommit(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, store.AddCheckpoint(tx, "f1", []byte("b1")))

	_, err = store.GetCheckpoint("f1")
	require.Error(t, err, "staged write must not be readable before commit")

	require.NoError(t, tx.Commit())
	data, err := store.GetCheckpoint("f1")
	require.NoError(t, err)
	require.Equal(t, []byte("b1"), data)
}

func testAddTwice(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	addCheckpoint(t, store, db, "f1", []byte("b1"))

	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	err = store.AddCheckpoint(tx, "f1", []byte("b2"))
	var storageErr persistence.StorageLayerError
	require.ErrorAs(t, err, &storageErr)
	require.NoError(t, tx.Rollback())
}

func testUpdateMissing(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	err = store.UpdateCheckpoint(tx, "f1", []byte("b1"))
	var storageErr persistence.StorageLayerError
	require.ErrorAs(t, err, &storageErr)
	require.NoError(t, tx.Rollback())
}

func testRollbackDiscards(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, store.AddCheckpoint(tx, "f1", []byte("b1")))
	require.NoError(t, tx.Rollback())

	_, err = store.GetCheckpoint("f1")
	require.Error(t, err)

	// rollback is terminal for the handle
	require.Error(t, tx.Commit())
}

func testRemove(t *testing.T, store *redisCheckpointStore, db *redisDatabase) {
	addCheckpoint(t, store, db, "f1", []byte("b1"))

	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, store.RemoveCheckpoint(tx, "f1"))
	require.NoError(t, tx.Commit())

	_, err = store.GetCheckpoint("f1")
	require.Error(t, err)
}
