package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) StartCall(caller domain.UserID, targets []domain.UserID) (domain.CallID, error) {
	id, err := o.Calls.StartCall(caller, targets)
	if err != nil {
		o.rejected("start", caller, "", err)
	}
	return id, err
}

func (o *Orchestrator) Invite(inviter domain.UserID, id domain.CallID, targets []domain.UserID) error {
	_, err := o.Calls.InviteToCall(inviter, id, targets)
	if err != nil {
		o.rejected("invite", inviter, id, err)
	}
	return err
}

func (o *Orchestrator) Accept(id domain.CallID, uid domain.UserID) error {
	err := o.Calls.AcceptCall(id, uid)
	if err != nil {
		o.rejected("accept", uid, id, err)
	}
	return err
}

func (o *Orchestrator) Decline(id domain.CallID, uid domain.UserID) {
	o.Calls.DeclineCall(id, uid)
}

func (o *Orchestrator) End(id domain.CallID, uid domain.UserID) {
	o.Calls.EndCall(id, uid)
}

// Negotiate relays an offer, answer or candidate by event type.
func (o *Orchestrator) Negotiate(kind string, id domain.CallID, sender domain.UserID, payload json.RawMessage) int {
	switch kind {
	case core.EventOffer:
		return o.Relay.RelayOffer(id, sender, payload)
	case core.EventAnswer:
		return o.Relay.RelayAnswer(id, sender, payload)
	case core.EventCandidate:
		return o.Relay.RelayCandidate(id, sender, payload)
	}
	return 0
}

func (o *Orchestrator) rejected(op string, uid domain.UserID, id domain.CallID, err error) {
	reason := Reason(err)
	o.Out.Metrics.CallError(reason)
	log.Info().Str("module", "orch").Str("op", op).Str("user", string(uid)).Str("call_id", string(id)).Str("reason", reason).Msg("call request rejected")
}

// Reason is a short stable code for err, used in metrics labels.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotOnline):
		return "not_online"
	case errors.Is(err, domain.ErrCallerBusy):
		return "caller_busy"
	case errors.Is(err, domain.ErrTargetsOffline):
		return "targets_offline"
	case errors.Is(err, domain.ErrTargetsBusy):
		return "targets_busy"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, domain.ErrUnauthorizedIdentity):
		return "unauthorized"
	default:
		return "other"
	}
}

// CallError builds the wire error for a failed request.
func CallError(err error) core.CallError {
	msg := core.CallError{Type: core.EventCallError, Error: err.Error()}
	var te *domain.TargetsError
	if errors.As(err, &te) {
		msg.Error = te.Kind.Error()
		if errors.Is(te.Kind, domain.ErrTargetsOffline) {
			msg.Offline = te.Users
		} else {
			msg.Busy = te.Users
		}
	}
	return msg
}
