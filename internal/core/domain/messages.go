package domain

import "encoding/json"

// SignalKind is a relayed WebRTC signaling message kind. The relay never
// inspects the payload carried under a kind.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

// Envelope is the wire frame for every message pushed to a client.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Outbound message types.
const (
	MsgUserStatusChange    = "userStatusChange"
	MsgOnlineUsers         = "getOnlineUsers"
	MsgIncomingCall        = "incomingCall"
	MsgCallInitiated       = "callInitiated"
	MsgCallError           = "callError"
	MsgCallAccepted        = "callAccepted"
	MsgCallRejected        = "callRejected"
	MsgCallEnded           = "callEnded"
	MsgParticipantJoined   = "participantJoined"
	MsgParticipantLeft     = "participantLeft"
	MsgGroupCallEnded      = "groupCallEnded"
	MsgGroupCallInvitation = "groupCallInvitation"
	MsgLanUsers            = "lan-users"
)

type UserStatusChangePayload struct {
	UserID   UserID `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type OnlineUsersPayload struct {
	Users []UserID `json:"users"`
}

type IncomingCallPayload struct {
	CallerID   UserID `json:"callerId"`
	CallerName string `json:"callerName"`
	IsVideo    bool   `json:"isVideo"`
	Timestamp  int64  `json:"timestamp"`
}

type CallInitiatedPayload struct {
	ReceiverID UserID `json:"receiverId"`
	Timestamp  int64  `json:"timestamp"`
}

type CallErrorPayload struct {
	Message string `json:"message"`
}

type CallAcceptedPayload struct {
	ReceiverID UserID `json:"receiverId"`
	Timestamp  int64  `json:"timestamp"`
}

type CallRejectedPayload struct {
	ReceiverID UserID `json:"receiverId"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

type CallEndedPayload struct {
	UserID    UserID `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type SignalForwardPayload struct {
	From    UserID          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type ParticipantJoinedPayload struct {
	GroupID     GroupID `json:"groupId"`
	UserID      UserID  `json:"userId"`
	DisplayName string  `json:"userName"`
}

type ParticipantLeftPayload struct {
	GroupID GroupID `json:"groupId"`
	UserID  UserID  `json:"userId"`
}

type GroupCallEndedPayload struct {
	GroupID GroupID `json:"groupId"`
}

type GroupCallInvitationPayload struct {
	CallerID   UserID  `json:"callerId"`
	CallerName string  `json:"callerName"`
	GroupID    GroupID `json:"groupId"`
	GroupName  string  `json:"groupName"`
	Timestamp  int64   `json:"timestamp"`
}

type LanUsersPayload struct {
	Users []LanPeer `json:"users"`
}
