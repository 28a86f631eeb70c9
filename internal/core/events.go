package core

import (
	"encoding/json"

	"github.com/dkeye/VoiceCall/internal/domain"
)

// Event types on the signaling channel.
const (
	EventConnected      = "connected"
	EventPing           = "ping"
	EventPong           = "pong"
	EventPresenceOnline = "presence:online"
	EventPresenceList   = "presence:list"
	EventPresenceUpdate = "presence:update"
	EventPresenceError  = "presence:error"
	EventCallStart      = "call:start"
	EventCallCreated    = "call:created"
	EventCallIncoming   = "call:incoming"
	EventCallInvite     = "call:invite"
	EventCallNote       = "call:note"
	EventCallAccept     = "call:accept"
	EventCallJoined     = "call:joined"
	EventCallDecline    = "call:decline"
	EventCallDeclined   = "call:declined"
	EventCallEnd        = "call:end"
	EventCallEnded      = "call:ended"
	EventCallError      = "call:error"
	EventOffer          = "webrtc:offer"
	EventAnswer         = "webrtc:answer"
	EventCandidate      = "webrtc:candidate"
)

type PresenceUpdate struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	Online bool          `json:"online"`
}

type PresenceList struct {
	Type   string            `json:"type"`
	Online []domain.Presence `json:"online"`
}

type CallCreated struct {
	Type   string        `json:"type"`
	CallID domain.CallID `json:"call_id"`
	Room   string        `json:"room"`
}

type CallIncoming struct {
	Type   string        `json:"type"`
	CallID domain.CallID `json:"call_id"`
	Room   string        `json:"room"`
	From   domain.UserID `json:"from"`
}

// CallNote is informational, not an error: an invite target was skipped.
type CallNote struct {
	Type   string        `json:"type"`
	CallID domain.CallID `json:"call_id"`
	UserID domain.UserID `json:"user_id"`
	Reason string        `json:"reason"`
	Note   string        `json:"note"`
}

// CallMember is used for call:joined and call:declined.
type CallMember struct {
	Type   string        `json:"type"`
	CallID domain.CallID `json:"call_id"`
	UserID domain.UserID `json:"user_id"`
}

type CallEnded struct {
	Type   string           `json:"type"`
	CallID domain.CallID    `json:"call_id"`
	UserID domain.UserID    `json:"user_id"`
	Reason domain.EndReason `json:"reason"`
}

type CallError struct {
	Type    string          `json:"type"`
	Error   string          `json:"error"`
	Offline []domain.UserID `json:"offline,omitempty"`
	Busy    []domain.UserID `json:"busy,omitempty"`
}

// Negotiation carries an offer, answer or candidate. Exactly one of SDP
// and Candidate is set; both are forwarded byte-for-byte.
type Negotiation struct {
	Type      string          `json:"type"`
	CallID    domain.CallID   `json:"call_id"`
	From      domain.UserID   `json:"from"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}
