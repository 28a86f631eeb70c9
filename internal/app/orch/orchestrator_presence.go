package orch

import (
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnConnect greets a fresh transport. Nothing is registered until the
// client presents its identity.
func (o *Orchestrator) OnConnect(conn core.SignalConnection) {
	o.Out.Send(conn, struct {
		Type string `json:"type"`
		OK   bool   `json:"ok"`
	}{core.EventConnected, true})
}

// Online registers conn under user after the identity provider confirms the
// pair. current is the identity conn was registered under before, if any.
func (o *Orchestrator) Online(conn core.SignalConnection, current domain.UserID, user domain.User) error {
	if !user.ID.Valid() || o.Auth == nil || !o.Auth.Authenticate(user.ID, user.Username) {
		log.Warn().Str("module", "orch").Str("user", string(user.ID)).Msg("presence rejected")
		return domain.ErrUnauthorizedIdentity
	}
	if current != "" && current != user.ID {
		o.Calls.Detach(current, conn)
	}
	prev, replaced := o.Calls.Attach(user, conn)
	if replaced && prev.Conn != conn {
		log.Info().Str("module", "orch").Str("user", string(user.ID)).Msg("closing superseded connection")
		prev.Conn.Close()
	}
	return nil
}

// OnDisconnect releases whatever conn owned. uid is empty for transports
// that never registered.
func (o *Orchestrator) OnDisconnect(conn core.SignalConnection, uid domain.UserID) {
	if uid == "" {
		return
	}
	rec, ok := o.Calls.Detach(uid, conn)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("user", string(uid)).Str("call_id", string(rec.CallID)).Msg("disconnected")
}

// Evict closes the live transport of uid; cleanup then runs through the
// transport's own disconnect path.
func (o *Orchestrator) Evict(uid domain.UserID) bool {
	rec, ok := o.Registry.Get(uid)
	if !ok {
		return false
	}
	log.Info().Str("module", "orch").Str("user", string(uid)).Msg("evict")
	rec.Conn.Close()
	return true
}

func (o *Orchestrator) Presence() []domain.Presence {
	return o.Registry.ListOnline()
}

func (o *Orchestrator) SendPresence(conn core.SignalConnection) {
	o.Out.Send(conn, core.PresenceList{Type: core.EventPresenceList, Online: o.Presence()})
}
