package model

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed union of side effects the flow state machine may
// request from the action executor. Dispatch over the union is exhaustive:
// the executor handles every variant and treats anything else as a
// programmer error.
type Action interface {
	isAction()
}

// TrackTransaction subscribes to commit notifications for a ledger
// transaction hash.
type TrackTransaction struct {
	TxHash string
}

// PersistCheckpoint writes the flow's serialized checkpoint inside the
// ambient database transaction. The caller asserts whether this is the
// first write (add) or a subsequent one (update).
type PersistCheckpoint struct {
	Id         FlowId
	Checkpoint *Checkpoint
	IsUpdate   bool
}

// PersistDeduplicationFacts records the receipt facts of the inbound
// messages that triggered this transition, inside the ambient transaction.
type PersistDeduplicationFacts struct {
	Handlers []DeduplicationHandler
}

// AcknowledgeMessages acknowledges inbound messages to the broker after
// the transition committed.
type AcknowledgeMessages struct {
	Handlers []DeduplicationHandler
}

// PropagateErrors sends the error messages to every live session's peer
// sink. Sessions not in the live state are skipped.
type PropagateErrors struct {
	Errors     []ErrorSessionMessage
	Sessions   []SessionState
	SenderUUID *uuid.UUID
}

// ScheduleEvent feeds an event straight back into the fiber's mailbox.
type ScheduleEvent struct {
	Event Event
}

// SleepUntil suspends the fiber until the given time; a Wakeup event ends
// the sleep.
type SleepUntil struct {
	Time time.Time
}

// RemoveCheckpoint deletes the flow's checkpoint inside the ambient
// database transaction.
type RemoveCheckpoint struct {
	Id FlowId
}

// SendInitial opens a session on a peer node.
type SendInitial struct {
	Destination     Party
	Initialise      InitialSessionMessage
	DeduplicationId DeduplicationId
}

// SendExisting sends on an established session.
type SendExisting struct {
	PeerParty       Party
	Message         ExistingSessionMessage
	DeduplicationId DeduplicationId
}

// AddSessionBinding registers sessionId as belonging to flowId in the
// state machine manager.
type AddSessionBinding struct {
	FlowId    FlowId
	SessionId SessionId
}

// RemoveSessionBindings unregisters the whole set atomically.
type RemoveSessionBindings struct {
	SessionIds []SessionId
}

// SignalFlowHasStarted marks the flow live in the state machine manager.
type SignalFlowHasStarted struct {
	FlowId FlowId
}

// RemoveFlow retires the flow from the manager.
type RemoveFlow struct {
	FlowId        FlowId
	RemovalReason FlowRemovalReason
	LastState     FlowState
}

// CreateTransaction opens a database transaction and binds it to the
// fiber. Opening a second one is a programmer error.
type CreateTransaction struct{}

// RollbackTransaction rolls back and unbinds the fiber's transaction.
// A no-op when none is bound.
type RollbackTransaction struct{}

// CommitTransaction commits the fiber's transaction. The transaction is
// unbound on every path, including a failed commit.
type CommitTransaction struct{}

// ExecuteAsyncOperation arms a deferred operation whose outcome comes back
// to the fiber as an event.
type ExecuteAsyncOperation struct {
	Operation       AsyncOperation
	DeduplicationId DeduplicationId
}

// ReleaseSoftLocks frees the vault soft locks held under the given uuid.
// A nil uuid is a no-op.
type ReleaseSoftLocks struct {
	LockId *uuid.UUID
}

// RetryFlowFromSafePoint restarts the flow from its last durable
// checkpoint. Durable state is not touched here.
type RetryFlowFromSafePoint struct {
	CurrentState FlowState
}

// ScheduleFlowTimeout arms the per-flow timeout in the manager.
type ScheduleFlowTimeout struct {
	FlowId FlowId
}

// CancelFlowTimeout disarms the per-flow timeout in the manager.
type CancelFlowTimeout struct {
	FlowId FlowId
}

func (TrackTransaction) isAction()          {}
func (PersistCheckpoint) isAction()         {}
func (PersistDeduplicationFacts) isAction() {}
func (AcknowledgeMessages) isAction()       {}
func (PropagateErrors) isAction()           {}
func (ScheduleEvent) isAction()             {}
func (SleepUntil) isAction()                {}
func (RemoveCheckpoint) isAction()          {}
func (SendInitial) isAction()               {}
func (SendExisting) isAction()              {}
func (AddSessionBinding) isAction()         {}
func (RemoveSessionBindings) isAction()     {}
func (SignalFlowHasStarted) isAction()      {}
func (RemoveFlow) isAction()                {}
func (CreateTransaction) isAction()         {}
func (RollbackTransaction) isAction()       {}
func (CommitTransaction) isAction()         {}
func (ExecuteAsyncOperation) isAction()     {}
func (ReleaseSoftLocks) isAction()          {}
func (RetryFlowFromSafePoint) isAction()    {}
func (ScheduleFlowTimeout) isAction()       {}
func (CancelFlowTimeout) isAction()         {}

// Name reports the action variant for logs and analytics.
func Name(a Action) string {
	switch a.(type) {
	case TrackTransaction:
		return "TrackTransaction"
	case PersistCheckpoint:
		return "PersistCheckpoint"
	case PersistDeduplicationFacts:
		return "PersistDeduplicationFacts"
	case AcknowledgeMessages:
		return "AcknowledgeMessages"
	case PropagateErrors:
		return "PropagateErrors"
	case ScheduleEvent:
		return "ScheduleEvent"
	case SleepUntil:
		return "SleepUntil"
	case RemoveCheckpoint:
		return "RemoveCheckpoint"
	case SendInitial:
		return "SendInitial"
	case SendExisting:
		return "SendExisting"
	case AddSessionBinding:
		return "AddSessionBinding"
	case RemoveSessionBindings:
		return "RemoveSessionBindings"
	case SignalFlowHasStarted:
		return "SignalFlowHasStarted"
	case RemoveFlow:
		return "RemoveFlow"
	case CreateTransaction:
		return "CreateTransaction"
	case RollbackTransaction:
		return "RollbackTransaction"
	case CommitTransaction:
		return "CommitTransaction"
	case ExecuteAsyncOperation:
		return "ExecuteAsyncOperation"
	case ReleaseSoftLocks:
		return "ReleaseSoftLocks"
	case RetryFlowFromSafePoint:
		return "RetryFlowFromSafePoint"
	case ScheduleFlowTimeout:
		return "ScheduleFlowTimeout"
	case CancelFlowTimeout:
		return "CancelFlowTimeout"
	}
	return "Unknown"
}
