package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/tommyyama2020/corda/model"
)

// FlowMessaging is the reliable peer transport. Sends are fire-and-monitor:
// durability and redelivery belong to the substrate, the caller only
// supplies a stable deduplication id so replays collapse on the receiver.
type FlowMessaging interface {
	SendSessionMessage(destination model.Party, message model.SessionMessage, deduplicationId model.SenderDeduplicationId) error
}

const initialMessageType = "initial"
const existingMessageType = "existing"

// Envelope is the wire form of one session message.
type Envelope struct {
	DeduplicationId model.SenderDeduplicationId `json:"deduplicationId"`
	Destination     model.Party                 `json:"destination"`
	Type            string                      `json:"type"`
	Payload         json.RawMessage             `json:"payload"`
}

func NewEnvelope(destination model.Party, message model.SessionMessage, deduplicationId model.SenderDeduplicationId) (*Envelope, error) {
	var msgType string
	switch message.(type) {
	case model.InitialSessionMessage:
		msgType = initialMessageType
	case model.ExistingSessionMessage:
		msgType = existingMessageType
	default:
		return nil, fmt.Errorf("unknown session message type %T", message)
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		DeduplicationId: deduplicationId,
		Destination:     destination,
		Type:            msgType,
		Payload:         payload,
	}, nil
}

// Open returns the session message carried by the envelope.
func (e *Envelope) Open() (model.SessionMessage, error) {
	switch e.Type {
	case initialMessageType:
		var msg model.InitialSessionMessage
		if err := json.Unmarshal(e.Payload, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case existingMessageType:
		var msg model.ExistingSessionMessage
		if err := json.Unmarshal(e.Payload, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	}
	return nil, fmt.Errorf("unknown envelope type %q", e.Type)
}
