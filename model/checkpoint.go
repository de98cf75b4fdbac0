package model

import "encoding/json"

// Checkpoint is the durable snapshot of a suspended flow. The action
// executor serializes it through the configured serializer and never
// inspects the flow state payload.
type Checkpoint struct {
	FlowId       FlowId                     `json:"flowId"`
	SuspendCount int                        `json:"suspendCount"`
	Sessions     map[SessionId]SessionState `json:"sessions,omitempty"`
	FlowState    json.RawMessage            `json:"flowState,omitempty"`
}
