package messaging

import (
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/model"
	rdimpl "github.com/tommyyama2020/corda/persistence/redis"
)

func newTestQueue(t *testing.T) cluster.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	require.NoError(t, ring.Join("local", "", true))
	conf := rdimpl.Config{
		Addrs:     []string{mr.Addr()},
		Namespace: "test",
	}
	return cluster.NewQueue(rdimpl.NewRedisQueue(conf), ring)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	senderUUID := uuid.New()
	dedupId := model.SenderDeduplicationId{
		DeduplicationId: model.NewDeduplicationId(),
		SenderUUID:      &senderUUID,
	}
	message := model.ExistingSessionMessage{
		RecipientSessionId: "sink-1",
		Payload:            []byte(`{"amount":100}`),
	}
	envelope, err := NewEnvelope("PartyB", message, dedupId)
	require.NoError(t, err)

	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, dedupId.String(), decoded.DeduplicationId.String())

	opened, err := decoded.Open()
	require.NoError(t, err)
	existing, ok := opened.(model.ExistingSessionMessage)
	require.True(t, ok)
	require.Equal(t, message.RecipientSessionId, existing.RecipientSessionId)
	require.Equal(t, message.Payload, existing.Payload)
}

func TestSendSessionMessageKeepsDeduplicationId(t *testing.T) {
	queue := newTestQueue(t)
	m := NewRedisFlowMessaging(queue, nil)

	dedupId := model.SenderDeduplicationId{DeduplicationId: model.DeduplicationId{Id: "fixed-id"}}
	message := model.InitialSessionMessage{
		InitiatorSessionId: "s1",
		InitiatorFlowId:    "f1",
		FlowName:           "payment",
	}
	require.NoError(t, m.SendSessionMessage("PartyB", message, dedupId))

	items, err := queue.Pop("sessions:PartyB", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var envelope Envelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &envelope))
	require.Equal(t, "fixed-id", envelope.DeduplicationId.DeduplicationId.Id)

	opened, err := envelope.Open()
	require.NoError(t, err)
	initial, ok := opened.(model.InitialSessionMessage)
	require.True(t, ok)
	require.Equal(t, "payment", initial.FlowName)
}

type stubRouter struct {
	delivered []model.SessionMessageDelivered
}

func (r *stubRouter) DeliverSessionMessage(event model.SessionMessageDelivered) error {
	r.delivered = append(r.delivered, event)
	return nil
}

func TestPollerDeliversAndDeduplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	require.NoError(t, ring.Join("local", "", true))
	conf := rdimpl.Config{
		Addrs:     []string{mr.Addr()},
		Namespace: "test",
	}
	queue := cluster.NewQueue(rdimpl.NewRedisQueue(conf), ring)
	facts := rdimpl.NewRedisDedupDao(conf)
	db := rdimpl.NewRedisDatabase(conf)
	router := &stubRouter{}
	poller := NewSessionMessagePoller("PartyA", queue, facts, router, 10, nil)
	sender := NewRedisFlowMessaging(queue, nil)

	dedupId := model.SenderDeduplicationId{DeduplicationId: model.DeduplicationId{Id: "d-1"}}
	message := model.ExistingSessionMessage{RecipientSessionId: "sink-1"}
	require.NoError(t, sender.SendSessionMessage("PartyA", message, dedupId))

	poller.poll()
	require.Len(t, router.delivered, 1)
	require.Equal(t, model.SessionId("sink-1"), router.delivered[0].SessionId)

	// run the handler lifecycle: record the fact, commit, acknowledge
	handler := router.delivered[0].Handler
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, handler.InsideDatabaseTransaction(tx))
	require.NoError(t, tx.Commit())
	require.NoError(t, handler.AfterDatabaseTransaction())

	// a broker replay of the same send is dropped before reaching a flow
	require.NoError(t, sender.SendSessionMessage("PartyA", message, dedupId))
	poller.poll()
	require.Len(t, router.delivered, 1)
}
