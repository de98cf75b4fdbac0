package flow_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/config"
	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/executor"
	"github.com/tommyyama2020/corda/flow"
	"github.com/tommyyama2020/corda/model"
)

func newTestManager(t *testing.T, flowTimeout time.Duration) (*flow.Manager, *container.DIContainer) {
	t.Helper()
	mr := miniredis.RunT(t)
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	require.NoError(t, ring.Join("local", "", true))

	c := container.NewDiContainer(ring)
	conf := config.Config{
		RedisConfig: config.RedisStorageConfig{
			Addrs:     []string{mr.Addr()},
			Namespace: "test",
		},
		StorageType:        config.STORAGE_TYPE_REDIS,
		EncoderDecoderType: config.JSON_ENCODER_DECODER,
	}
	require.NoError(t, c.Init(conf))
	t.Cleanup(func() { c.GetTimerManager().Stop() })

	ex := executor.NewActionExecutor(c, 16, nil)
	return flow.NewManager(c, ex, flowTimeout, 100*time.Millisecond), c
}

func TestSessionBindings(t *testing.T) {
	m, _ := newTestManager(t, time.Minute)
	fb := m.AddFlow(model.NewFlowId())
	other := m.AddFlow(model.NewFlowId())

	require.NoError(t, m.AddSessionBinding(fb.Id, "s1"))
	require.NoError(t, m.AddSessionBinding(fb.Id, "s2"))
	// rebinding the same pair is fine
	require.NoError(t, m.AddSessionBinding(fb.Id, "s1"))

	err := m.AddSessionBinding(other.Id, "s1")
	var progErr model.ProgrammerError
	require.ErrorAs(t, err, &progErr)

	flowId, ok := m.FlowForSession("s1")
	require.True(t, ok)
	require.Equal(t, fb.Id, flowId)

	require.NoError(t, m.RemoveSessionBindings([]model.SessionId{"s1", "s2"}))
	_, ok = m.FlowForSession("s1")
	require.False(t, ok)
	_, ok = m.FlowForSession("s2")
	require.False(t, ok)
}

func TestRemoveFlowDropsBindingsAndFiber(t *testing.T) {
	m, c := newTestManager(t, time.Minute)
	fb := m.AddFlow(model.NewFlowId())
	require.NoError(t, m.AddSessionBinding(fb.Id, "s1"))
	require.NoError(t, m.ScheduleFlowTimeout(fb.Id))

	require.NoError(t, m.RemoveFlow(fb.Id, model.REMOVAL_REASON_ORDERLY_FINISH, model.COMPLETED))

	_, ok := m.GetFlow(fb.Id)
	require.False(t, ok)
	_, ok = m.FlowForSession("s1")
	require.False(t, ok)
	state, ok := c.GetFlowStateCache().GetFlowState(fb.Id)
	require.True(t, ok)
	require.Equal(t, model.REMOVED, state)
}

func TestFlowTimeoutFires(t *testing.T) {
	m, _ := newTestManager(t, time.Second)
	fb := m.AddFlow(model.NewFlowId())
	require.NoError(t, m.ScheduleFlowTimeout(fb.Id))

	select {
	case event := <-fb.Events():
		errEvent, ok := event.(model.Error)
		require.True(t, ok, "expected error event, got %T", event)
		require.ErrorIs(t, errEvent.Err, flow.ErrFlowTimedOut)
	case <-time.After(5 * time.Second):
		t.Fatal("flow timeout did not fire")
	}
}

func TestCancelFlowTimeout(t *testing.T) {
	m, _ := newTestManager(t, time.Second)
	fb := m.AddFlow(model.NewFlowId())
	require.NoError(t, m.ScheduleFlowTimeout(fb.Id))
	require.NoError(t, m.CancelFlowTimeout(fb.Id))
	// cancelling a disarmed timeout is a no-op
	require.NoError(t, m.CancelFlowTimeout(fb.Id))

	select {
	case event := <-fb.Events():
		t.Fatalf("unexpected event %T after cancel", event)
	case <-time.After(2500 * time.Millisecond):
	}
}

func TestRetryAndResumeFromSafePoint(t *testing.T) {
	m, c := newTestManager(t, time.Minute)
	fb := m.AddFlow(model.NewFlowId())

	// persist a checkpoint carrying one session
	checkpoint := model.Checkpoint{
		FlowId:       fb.Id,
		SuspendCount: 2,
		Sessions: map[model.SessionId]model.SessionState{
			"s1": {SessionId: "s1", Peer: "PartyB", Initiated: model.Live("sink-1")},
		},
	}
	data, err := c.CheckpointEncDec.Encode(checkpoint)
	require.NoError(t, err)
	tx, err := c.GetDatabase().BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, c.GetCheckpointStorage().AddCheckpoint(tx, fb.Id, data))
	require.NoError(t, tx.Commit())

	require.NoError(t, m.RetryFlowFromSafePoint(fb.Id, model.FAILED))
	state, ok := c.GetFlowStateCache().GetFlowState(fb.Id)
	require.True(t, ok)
	require.Equal(t, model.FAILED, state)

	require.Eventually(t, func() bool {
		items, err := c.GetRetryQueue().Pop(executor.RetryQueueName)
		if err != nil || len(items) == 0 {
			return false
		}
		require.Equal(t, string(fb.Id), items[0])
		return true
	}, 2*time.Second, 50*time.Millisecond, "retry queue entry did not become due")

	require.NoError(t, m.ResumeFromSafePoint(fb.Id))
	flowId, ok := m.FlowForSession("s1")
	require.True(t, ok)
	require.Equal(t, fb.Id, flowId)

	select {
	case event := <-fb.Events():
		require.IsType(t, model.Wakeup{}, event)
	case <-time.After(time.Second):
		t.Fatal("resume did not wake the fiber")
	}
}

func TestDeliverSessionMessage(t *testing.T) {
	m, _ := newTestManager(t, time.Minute)
	fb := m.AddFlow(model.NewFlowId())
	require.NoError(t, m.AddSessionBinding(fb.Id, "s1"))

	event := model.SessionMessageDelivered{
		SessionId: "s1",
		Message:   model.ExistingSessionMessage{RecipientSessionId: "s1"},
	}
	require.NoError(t, m.DeliverSessionMessage(event))
	select {
	case got := <-fb.Events():
		require.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("message not delivered to fiber")
	}

	err := m.DeliverSessionMessage(model.SessionMessageDelivered{SessionId: "unknown"})
	require.ErrorContains(t, err, "no flow bound to session")
}
