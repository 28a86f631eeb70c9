package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", c.cid).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("cid", c.cid).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", c.cid).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", c.cid).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("cid", c.cid).Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", c.cid).Str("user", string(c.user)).Msg("readPump closing")
		c.Close()
		ctl.Orch.OnDisconnect(c, c.user)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.settings.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", c.cid).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(c, data)
	}
}

func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", c.cid).Msg("bad json")
		return
	}

	switch env.Type {
	case core.EventPing:
		ctl.handlePing(c)
	case core.EventPresenceOnline:
		ctl.handlePresenceOnline(c, data)
	case core.EventPresenceList:
		ctl.Orch.SendPresence(c)
	case core.EventCallStart:
		ctl.handleCallStart(c, data)
	case core.EventCallInvite:
		ctl.handleCallInvite(c, data)
	case core.EventCallAccept:
		ctl.handleCallAccept(c, data)
	case core.EventCallDecline:
		ctl.handleCallDecline(c, data)
	case core.EventCallEnd:
		ctl.handleCallEnd(c, data)
	case core.EventOffer, core.EventAnswer, core.EventCandidate:
		ctl.handleNegotiation(env.Type, c, data)
	default:
		log.Warn().Str("module", "signal").Str("cid", c.cid).Str("type", env.Type).Msg("unknown signal")
	}
}
