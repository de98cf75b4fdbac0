package model

import (
	"github.com/google/uuid"
)

// FlowId identifies one flow instance across the cluster.
type FlowId string

func NewFlowId() FlowId {
	return FlowId(uuid.New().String())
}

// Party is the identity of a peer node taking part in a session.
type Party string

type FlowState int

const RUNNING FlowState = 1
const SLEEPING FlowState = 2
const FAILED FlowState = 3
const COMPLETED FlowState = 4
const REMOVED FlowState = 5

type FlowRemovalReason int

const REMOVAL_REASON_ORDERLY_FINISH FlowRemovalReason = 1
const REMOVAL_REASON_ERROR_FINISH FlowRemovalReason = 2
const REMOVAL_REASON_SOFT_SHUTDOWN FlowRemovalReason = 3

func (r FlowRemovalReason) String() string {
	switch r {
	case REMOVAL_REASON_ORDERLY_FINISH:
		return "orderly-finish"
	case REMOVAL_REASON_ERROR_FINISH:
		return "error-finish"
	case REMOVAL_REASON_SOFT_SHUTDOWN:
		return "soft-shutdown"
	}
	return "unknown"
}
