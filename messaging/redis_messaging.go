package messaging

import (
	"encoding/json"

	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
)

const sessionQueueName = "sessions"

// PartyResolver maps a party identity to the node currently hosting it,
// via cluster membership.
type PartyResolver interface {
	ResolveParty(party string) (addr string, ok bool)
}

var _ FlowMessaging = new(redisFlowMessaging)

// redisFlowMessaging delivers session messages over the ring-partitioned
// redis queue. Each party owns one logical queue; the envelope keeps the
// sender deduplication id so the receiving side can drop replays.
type redisFlowMessaging struct {
	queue    cluster.Queue
	resolver PartyResolver
}

func NewRedisFlowMessaging(queue cluster.Queue, resolver PartyResolver) *redisFlowMessaging {
	return &redisFlowMessaging{
		queue:    queue,
		resolver: resolver,
	}
}

func (m *redisFlowMessaging) SendSessionMessage(destination model.Party, message model.SessionMessage, deduplicationId model.SenderDeduplicationId) error {
	envelope, err := NewEnvelope(destination, message, deduplicationId)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if m.resolver != nil {
		if _, ok := m.resolver.ResolveParty(string(destination)); !ok {
			// the queue keeps the message until the party's node appears
			logger.Warn("destination party not in cluster membership", zap.String("destination", string(destination)))
		}
	}
	logger.Debug("sending session message",
		zap.String("destination", string(destination)),
		zap.String("deduplicationId", deduplicationId.String()))
	return m.queue.Push(sessionQueueName+":"+string(destination), string(destination), data)
}
