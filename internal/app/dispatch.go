package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Dispatcher encodes outbound messages and queues them on a connection.
// It never blocks: a full queue is handed to the Policy.
type Dispatcher struct {
	Policy  Policy
	Metrics *metrics.Metrics
}

func NewDispatcher(policy Policy, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{Policy: policy, Metrics: m}
}

// Send reports whether v was queued on conn.
func (d *Dispatcher) Send(conn core.SignalConnection, v any) bool {
	if conn == nil {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("marshal")
		d.Metrics.Dropped(metrics.DropEncode)
		return false
	}
	err = conn.TrySend(b)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrBackpressure):
		d.Metrics.Dropped(metrics.DropBackpressure)
		if d.Policy != nil && d.Policy.OnBackPressure(conn) == KickMember {
			log.Warn().Str("module", "app.dispatch").Msg("send queue full, closing connection")
			conn.Close()
		}
	default:
		d.Metrics.Dropped(metrics.DropClosed)
	}
	return false
}
