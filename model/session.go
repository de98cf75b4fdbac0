package model

import (
	"github.com/google/uuid"
)

// SessionId identifies one end of a session between two flows on two nodes.
type SessionId string

func NewSessionId() SessionId {
	return SessionId(uuid.New().String())
}

type InitiatedStateKind int

const SESSION_UNINITIATED InitiatedStateKind = 1
const SESSION_LIVE InitiatedStateKind = 2
const SESSION_ENDED InitiatedStateKind = 3

// InitiatedState tracks whether the peer has confirmed the session.
// PeerSinkSessionId is only meaningful while the session is live.
type InitiatedState struct {
	Kind              InitiatedStateKind `json:"kind"`
	PeerSinkSessionId SessionId          `json:"peerSinkSessionId,omitempty"`
}

func Uninitiated() InitiatedState {
	return InitiatedState{Kind: SESSION_UNINITIATED}
}

func Live(peerSinkSessionId SessionId) InitiatedState {
	return InitiatedState{Kind: SESSION_LIVE, PeerSinkSessionId: peerSinkSessionId}
}

func Ended() InitiatedState {
	return InitiatedState{Kind: SESSION_ENDED}
}

type SessionState struct {
	SessionId   SessionId      `json:"sessionId"`
	Peer        Party          `json:"peer"`
	Initiated   InitiatedState `json:"initiated"`
	SenderSeqNo uint64         `json:"senderSeqNo"`
	ErrorId     *uuid.UUID     `json:"errorId,omitempty"`
}
