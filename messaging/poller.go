package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
	"github.com/tommyyama2020/corda/util"
	"go.uber.org/zap"
)

// SessionRouter finds the fiber owning an inbound message, via the
// manager's session bindings.
type SessionRouter interface {
	DeliverSessionMessage(event model.SessionMessageDelivered) error
}

// SessionMessagePoller drains the local party's session queue and hands
// each message to its flow with a deduplication handler attached. Replays
// whose receipt fact is already recorded are acknowledged and dropped
// before they reach any fiber.
type SessionMessagePoller struct {
	localParty model.Party
	queue      cluster.Queue
	facts      persistence.DeduplicationFactDao
	router     SessionRouter
	batchSize  int
	stop       chan struct{}
	wg         *sync.WaitGroup
}

func NewSessionMessagePoller(localParty model.Party, queue cluster.Queue, facts persistence.DeduplicationFactDao, router SessionRouter, batchSize int, wg *sync.WaitGroup) *SessionMessagePoller {
	return &SessionMessagePoller{
		localParty: localParty,
		queue:      queue,
		facts:      facts,
		router:     router,
		batchSize:  batchSize,
		stop:       make(chan struct{}),
		wg:         wg,
	}
}

func (p *SessionMessagePoller) Name() string {
	return "session-message-poller"
}

func (p *SessionMessagePoller) queueName() string {
	return sessionQueueName + ":" + string(p.localParty)
}

func (p *SessionMessagePoller) Start() error {
	tw := util.NewTickWorker("session-message-poller", time.Second, p.stop, p.poll, p.wg)
	tw.Start()
	return nil
}

func (p *SessionMessagePoller) Stop() error {
	p.stop <- struct{}{}
	return nil
}

func (p *SessionMessagePoller) poll() {
	items, err := p.queue.Pop(p.queueName(), p.batchSize)
	if err != nil {
		logger.Error("error while polling session queue", zap.Error(err))
		return
	}
	for _, item := range items {
		p.handle([]byte(item))
	}
}

func (p *SessionMessagePoller) handle(raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Error("can not decode session message envelope", zap.Error(err))
		return
	}
	ack := func() error {
		return p.queue.Ack(p.queueName(), string(envelope.Destination), raw)
	}
	seen, err := p.facts.SeenFact(envelope.DeduplicationId)
	if err != nil {
		logger.Error("error in reading deduplication fact", zap.Error(err))
		return
	}
	if seen {
		logger.Debug("dropping replayed session message", zap.String("deduplicationId", envelope.DeduplicationId.String()))
		if err := ack(); err != nil {
			logger.Info("failed to acknowledge replayed message", zap.Error(err))
		}
		return
	}
	message, err := envelope.Open()
	if err != nil {
		logger.Error("can not decode session message", zap.Error(err))
		return
	}
	var sessionId model.SessionId
	switch msg := message.(type) {
	case model.InitialSessionMessage:
		sessionId = msg.InitiatorSessionId
	case model.ExistingSessionMessage:
		sessionId = msg.RecipientSessionId
	}
	event := model.SessionMessageDelivered{
		SessionId: sessionId,
		Message:   message,
		Handler:   NewQueueDeduplicationHandler(p.facts, envelope.DeduplicationId, ack),
	}
	if err := p.router.DeliverSessionMessage(event); err != nil {
		logger.Error("can not deliver session message", zap.String("sessionId", string(sessionId)), zap.Error(err))
	}
}
