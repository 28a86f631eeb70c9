package orch

import (
	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/domain"
)

// Authenticator is the identity provider seen from the core: it confirms
// that a (user id, username) pair was issued by it.
type Authenticator interface {
	Authenticate(id domain.UserID, username string) bool
}

type Orchestrator struct {
	Registry *app.Registry
	Calls    *app.CallManager
	Relay    *app.Relay
	Auth     Authenticator
	Out      *app.Dispatcher
}

func New(reg *app.Registry, calls *app.CallManager, relay *app.Relay, auth Authenticator, out *app.Dispatcher) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Calls:    calls,
		Relay:    relay,
		Auth:     auth,
		Out:      out,
	}
}
