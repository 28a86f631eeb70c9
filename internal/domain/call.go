package domain

import (
	"strings"

	"github.com/google/uuid"
)

type CallID string

// EndReason tells the remaining members why somebody is gone.
type EndReason string

const (
	ReasonHangup EndReason = "hangup"
	ReasonLeft   EndReason = "left"
)

const callIDLen = 10

func NewCallID() CallID {
	return CallID(strings.ReplaceAll(uuid.NewString(), "-", "")[:callIDLen])
}

// Room is the client-facing name of the call's signaling group.
func (id CallID) Room() string {
	return "call:" + string(id)
}

// Call is a read-only view of a call session.
type Call struct {
	ID      CallID   `json:"call_id"`
	Owner   UserID   `json:"owner"`
	Members []UserID `json:"members"`
}

func (c Call) Has(uid UserID) bool {
	for _, m := range c.Members {
		if m == uid {
			return true
		}
	}
	return false
}
