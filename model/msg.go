package model

import (
	"fmt"

	"github.com/google/uuid"
)

// DeduplicationId identifies one send attempt so the receiving broker can
// discard replays after a crash. For error propagation the id is derived
// deterministically from the error and the target sink session, which makes
// a replayed send bit-identical to the original.
type DeduplicationId struct {
	Id string `json:"id"`
}

func NewDeduplicationId() DeduplicationId {
	return DeduplicationId{Id: uuid.New().String()}
}

func DeduplicationIdForError(errorId uuid.UUID, sinkSessionId SessionId) DeduplicationId {
	return DeduplicationId{Id: fmt.Sprintf("E-%s-%s", errorId.String(), sinkSessionId)}
}

// SenderDeduplicationId pairs a DeduplicationId with the sending node's
// instance uuid so receivers can tolerate node restarts.
type SenderDeduplicationId struct {
	DeduplicationId DeduplicationId `json:"deduplicationId"`
	SenderUUID      *uuid.UUID      `json:"senderUUID,omitempty"`
}

func (s SenderDeduplicationId) String() string {
	if s.SenderUUID != nil {
		return fmt.Sprintf("%s:%s", s.SenderUUID.String(), s.DeduplicationId.Id)
	}
	return s.DeduplicationId.Id
}

// SessionMessage is the closed set of payloads carried by the messaging
// substrate between two flows.
type SessionMessage interface {
	isSessionMessage()
}

// InitialSessionMessage opens a session with a peer flow that has not seen
// this session before.
type InitialSessionMessage struct {
	InitiatorSessionId SessionId `json:"initiatorSessionId"`
	InitiatorFlowId    FlowId    `json:"initiatorFlowId"`
	FlowName           string    `json:"flowName"`
	FirstPayload       []byte    `json:"firstPayload,omitempty"`
}

// ExistingSessionMessage is addressed at the peer's sink session id of an
// already established session.
type ExistingSessionMessage struct {
	RecipientSessionId SessionId            `json:"recipientSessionId"`
	Payload            []byte               `json:"payload,omitempty"`
	Error              *ErrorSessionMessage `json:"error,omitempty"`
}

// ErrorSessionMessage carries a flow error to the peer.
type ErrorSessionMessage struct {
	ErrorId uuid.UUID `json:"errorId"`
	Message string    `json:"message"`
}

func (InitialSessionMessage) isSessionMessage()  {}
func (ExistingSessionMessage) isSessionMessage() {}
