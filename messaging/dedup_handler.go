package messaging

import (
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
)

var _ model.DeduplicationHandler = new(queueDeduplicationHandler)

// queueDeduplicationHandler ties one inbound envelope to the transition it
// triggered. The receipt fact is staged on the transition's transaction;
// the broker acknowledgement runs only after that transaction committed.
type queueDeduplicationHandler struct {
	facts persistence.DeduplicationFactDao
	id    model.SenderDeduplicationId
	ack   func() error
}

func NewQueueDeduplicationHandler(facts persistence.DeduplicationFactDao, id model.SenderDeduplicationId, ack func() error) *queueDeduplicationHandler {
	return &queueDeduplicationHandler{
		facts: facts,
		id:    id,
		ack:   ack,
	}
}

func (h *queueDeduplicationHandler) InsideDatabaseTransaction(tx model.Transaction) error {
	return h.facts.RecordFact(tx, h.id)
}

func (h *queueDeduplicationHandler) AfterDatabaseTransaction() error {
	return h.ack()
}
