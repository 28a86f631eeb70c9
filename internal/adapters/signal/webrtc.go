package signal

import (
	"encoding/json"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleNegotiation(
	kind string,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		CallID    domain.CallID   `json:"call_id"`
		From      domain.UserID   `json:"from"`
		SDP       json.RawMessage `json:"sdp"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", conn.cid).Str("type", kind).Msg("bad negotiation payload")
		return
	}
	uid, ok := ctl.actor(conn, p.From)
	if !ok {
		return
	}
	payload := p.SDP
	if kind == core.EventCandidate {
		payload = p.Candidate
	}
	n := ctl.Orch.Negotiate(kind, p.CallID, uid, payload)
	log.Debug().Str("module", "signal").Str("user", string(uid)).Str("call_id", string(p.CallID)).Str("type", kind).Int("delivered", n).Msg("relayed")
}
