package signal

import (
	"encoding/json"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ctl *SignalWSController) handlePresenceOnline(
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		UserID   domain.UserID `json:"user_id"`
		Username string        `json:"username"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", conn.cid).Msg("bad presence payload")
		ctl.sendJSON(conn, presenceError{core.EventPresenceError, "bad_payload"})
		return
	}
	if conn.bound != "" && p.UserID != conn.bound {
		log.Warn().Str("module", "signal").Str("cid", conn.cid).Str("user", string(p.UserID)).Msg("identity does not match session")
		ctl.sendJSON(conn, presenceError{core.EventPresenceError, domain.ErrUnauthorizedIdentity.Error()})
		return
	}

	user := domain.User{ID: p.UserID, Username: p.Username}
	if err := ctl.Orch.Online(conn, conn.user, user); err != nil {
		ctl.sendJSON(conn, presenceError{core.EventPresenceError, err.Error()})
		return
	}
	conn.user = user.ID
	log.Info().Str("module", "signal").Str("cid", conn.cid).Str("user", string(user.ID)).Msg("online")
	ctl.Orch.SendPresence(conn)
}
