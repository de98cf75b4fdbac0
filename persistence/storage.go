package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tommyyama2020/corda/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

// Database opens transactions that stage writes until commit. A handle is
// bound to exactly one fiber.
type Database interface {
	BeginTransaction() (model.Transaction, error)
}

// CheckpointStorage is the durable flow-id to checkpoint-bytes mapping.
// The mutating calls stage their write on the supplied transaction so the
// checkpoint commits atomically with the transition's other effects. A
// checkpoint is added exactly once per flow id; later writes must be
// updates.
type CheckpointStorage interface {
	AddCheckpoint(tx model.Transaction, id model.FlowId, data []byte) error
	UpdateCheckpoint(tx model.Transaction, id model.FlowId, data []byte) error
	RemoveCheckpoint(tx model.Transaction, id model.FlowId) error
	GetCheckpoint(id model.FlowId) ([]byte, error)
}

// DeduplicationFactDao records receipt facts for inbound messages.
// RecordFact stages the write on the transaction; SeenFact reads committed
// state only.
type DeduplicationFactDao interface {
	RecordFact(tx model.Transaction, id model.SenderDeduplicationId) error
	SeenFact(id model.SenderDeduplicationId) (bool, error)
}

// SoftLockDao releases vault soft locks held under a lock uuid.
type SoftLockDao interface {
	Lock(lockId uuid.UUID, stateRefs []string) error
	Release(lockId uuid.UUID) error
	Held(lockId uuid.UUID) ([]string, error)
}

// Queue is an at-least-once partitioned message queue.
type Queue interface {
	Push(queueName string, partition string, message []byte) error
	Pop(queueName string, partition string, batchSize int) ([]string, error)
	Ack(queueName string, partition string, message []byte) error
}

// DelayQueue releases messages only once their deadline has passed.
type DelayQueue interface {
	Push(queueName string, partition string, message []byte) error
	PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error
	Pop(queueName string, partition string) ([]string, error)
}
