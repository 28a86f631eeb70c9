package signal

import (
	"encoding/json"

	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

type callPayload struct {
	CallID domain.CallID   `json:"call_id"`
	From   domain.UserID   `json:"from"`
	UserID domain.UserID   `json:"user_id"`
	To     []domain.UserID `json:"to"`
}

func (ctl *SignalWSController) decodeCall(conn *WsSignalConn, data []byte) (callPayload, bool) {
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", conn.cid).Msg("bad call payload")
		ctl.sendJSON(conn, core.CallError{Type: core.EventCallError, Error: "bad_payload"})
		return p, false
	}
	return p, true
}

// actor resolves who performs a request. A claimed id must match the
// connection's registered identity; an empty one defaults to it.
func (ctl *SignalWSController) actor(conn *WsSignalConn, claimed domain.UserID) (domain.UserID, bool) {
	if conn.user == "" {
		ctl.fail(conn, domain.ErrNotOnline)
		return "", false
	}
	if claimed != "" && claimed != conn.user {
		log.Warn().Str("module", "signal").Str("cid", conn.cid).Str("user", string(conn.user)).Str("claimed", string(claimed)).Msg("actor mismatch")
		ctl.fail(conn, domain.ErrUnauthorizedIdentity)
		return "", false
	}
	return conn.user, true
}

func (ctl *SignalWSController) fail(conn *WsSignalConn, err error) {
	ctl.sendJSON(conn, orch.CallError(err))
}

func (ctl *SignalWSController) allowRing(conn *WsSignalConn, uid domain.UserID) bool {
	if ctl.Limiter.Allow(uid) {
		return true
	}
	log.Warn().Str("module", "signal").Str("user", string(uid)).Msg("ringing rate limited")
	ctl.Orch.Out.Metrics.CallError("rate_limited")
	ctl.sendJSON(conn, core.CallError{Type: core.EventCallError, Error: "rate_limited"})
	return false
}

func (ctl *SignalWSController) handleCallStart(conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeCall(conn, data)
	if !ok {
		return
	}
	uid, ok := ctl.actor(conn, p.From)
	if !ok || !ctl.allowRing(conn, uid) {
		return
	}
	if _, err := ctl.Orch.StartCall(uid, p.To); err != nil {
		ctl.fail(conn, err)
	}
}

func (ctl *SignalWSController) handleCallInvite(conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeCall(conn, data)
	if !ok {
		return
	}
	uid, ok := ctl.actor(conn, p.From)
	if !ok || !ctl.allowRing(conn, uid) {
		return
	}
	if err := ctl.Orch.Invite(uid, p.CallID, p.To); err != nil {
		ctl.fail(conn, err)
	}
}

func (ctl *SignalWSController) handleCallAccept(conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeCall(conn, data)
	if !ok {
		return
	}
	uid, ok := ctl.actor(conn, p.UserID)
	if !ok {
		return
	}
	if err := ctl.Orch.Accept(p.CallID, uid); err != nil {
		ctl.fail(conn, err)
	}
}

func (ctl *SignalWSController) handleCallDecline(conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeCall(conn, data)
	if !ok {
		return
	}
	if uid, ok := ctl.actor(conn, p.From); ok {
		ctl.Orch.Decline(p.CallID, uid)
	}
}

func (ctl *SignalWSController) handleCallEnd(conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeCall(conn, data)
	if !ok {
		return
	}
	if uid, ok := ctl.actor(conn, p.UserID); ok {
		ctl.Orch.End(p.CallID, uid)
	}
}
