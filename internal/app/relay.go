package app

import (
	"encoding/json"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Relay forwards negotiation payloads to the other members of a call.
// Payloads are never decoded.
type Relay struct {
	calls   *CallManager
	metrics *metrics.Metrics
}

func NewRelay(calls *CallManager, m *metrics.Metrics) *Relay {
	return &Relay{calls: calls, metrics: m}
}

func (r *Relay) RelayOffer(id domain.CallID, sender domain.UserID, sdp json.RawMessage) int {
	return r.relay(core.Negotiation{Type: core.EventOffer, CallID: id, From: sender, SDP: sdp})
}

func (r *Relay) RelayAnswer(id domain.CallID, sender domain.UserID, sdp json.RawMessage) int {
	return r.relay(core.Negotiation{Type: core.EventAnswer, CallID: id, From: sender, SDP: sdp})
}

func (r *Relay) RelayCandidate(id domain.CallID, sender domain.UserID, candidate json.RawMessage) int {
	return r.relay(core.Negotiation{Type: core.EventCandidate, CallID: id, From: sender, Candidate: candidate})
}

// relay returns how many members the message was queued for.
func (r *Relay) relay(msg core.Negotiation) int {
	n, ok := r.calls.Fanout(msg.CallID, msg.From, msg)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("call_id", string(msg.CallID)).Str("type", msg.Type).Msg("no such call, dropped")
		return 0
	}
	r.metrics.Relayed(msg.Type, n)
	return n
}
