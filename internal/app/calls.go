package app

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/rs/zerolog/log"
)

type callSession struct {
	id      domain.CallID
	owner   domain.UserID
	members []domain.UserID
}

func (s *callSession) has(uid domain.UserID) bool {
	return slices.Contains(s.members, uid)
}

func (s *callSession) view() domain.Call {
	return domain.Call{ID: s.id, Owner: s.owner, Members: slices.Clone(s.members)}
}

// InviteResult lists what happened to each invite target.
type InviteResult struct {
	Invited []domain.UserID
	Offline []domain.UserID
	Busy    []domain.UserID
}

// CallManager owns call sessions. Every change to busy state or membership
// happens under mu; the registry lock is only ever taken after it.
type CallManager struct {
	mu    sync.Mutex
	calls map[domain.CallID]*callSession

	reg     *Registry
	metrics *metrics.Metrics
	newID   func() domain.CallID
}

func NewCallManager(reg *Registry, m *metrics.Metrics) *CallManager {
	return &CallManager{
		calls:   make(map[domain.CallID]*callSession),
		reg:     reg,
		metrics: m,
		newID:   domain.NewCallID,
	}
}

// StartCall creates a ringing call owned by caller. Nothing is created unless
// every target is online and free.
func (m *CallManager) StartCall(caller domain.UserID, targets []domain.UserID) (domain.CallID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reg.Get(caller)
	if !ok {
		return "", domain.ErrNotOnline
	}
	targets = normalizeTargets(targets, caller)

	var offline, busy []domain.UserID
	for _, t := range targets {
		trec, ok := m.reg.Get(t)
		switch {
		case !ok:
			offline = append(offline, t)
		case trec.Busy:
			busy = append(busy, t)
		}
	}
	if len(offline) > 0 {
		return "", domain.TargetsOffline(offline)
	}
	if rec.Busy {
		return "", domain.ErrCallerBusy
	}
	if len(busy) > 0 {
		return "", domain.TargetsBusy(busy)
	}

	id := m.freshIDLocked()
	m.calls[id] = &callSession{id: id, owner: caller, members: []domain.UserID{caller}}
	m.reg.SetBusy(caller, true, id)
	m.metrics.CallStarted()
	m.metrics.SetActiveCalls(len(m.calls))

	for _, t := range targets {
		m.reg.Send(t, core.CallIncoming{Type: core.EventCallIncoming, CallID: id, Room: id.Room(), From: caller})
	}
	m.reg.Send(caller, core.CallCreated{Type: core.EventCallCreated, CallID: id, Room: id.Room()})

	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("user", string(caller)).Int("targets", len(targets)).Msg("call started")
	return id, nil
}

// InviteToCall rings more users into an existing call. Each target is
// handled on its own; skipped targets produce a call:note to the inviter.
func (m *CallManager) InviteToCall(inviter domain.UserID, id domain.CallID, targets []domain.UserID) (InviteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res InviteResult
	sess, ok := m.calls[id]
	if !ok {
		return res, domain.ErrSessionNotFound
	}
	if !sess.has(inviter) {
		return res, domain.ErrNotAMember
	}

	for _, t := range normalizeTargets(targets, inviter) {
		trec, ok := m.reg.Get(t)
		switch {
		case !ok:
			res.Offline = append(res.Offline, t)
			m.reg.Send(inviter, note(id, t, "offline"))
		case trec.Busy:
			res.Busy = append(res.Busy, t)
			m.reg.Send(inviter, note(id, t, "busy"))
		default:
			res.Invited = append(res.Invited, t)
			m.reg.Send(t, core.CallIncoming{Type: core.EventCallIncoming, CallID: id, Room: id.Room(), From: inviter})
		}
	}
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("user", string(inviter)).
		Int("invited", len(res.Invited)).Int("skipped", len(res.Offline)+len(res.Busy)).Msg("invite")
	return res, nil
}

// AcceptCall joins uid to the call and tells the other members so each of
// them can start negotiating with the newcomer.
func (m *CallManager) AcceptCall(id domain.CallID, uid domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.calls[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec, ok := m.reg.Get(uid)
	if !ok {
		return domain.ErrNotOnline
	}
	if sess.has(uid) {
		return nil
	}
	if rec.Busy {
		return domain.ErrCallerBusy
	}

	sess.members = append(sess.members, uid)
	m.reg.SetBusy(uid, true, id)
	m.fanoutLocked(sess, uid, core.CallMember{Type: core.EventCallJoined, CallID: id, UserID: uid})

	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("user", string(uid)).Int("members", len(sess.members)).Msg("joined")
	return nil
}

// DeclineCall only notifies; the decliner was never a member.
func (m *CallManager) DeclineCall(id domain.CallID, uid domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.calls[id]
	if !ok {
		return
	}
	m.fanoutLocked(sess, uid, core.CallMember{Type: core.EventCallDeclined, CallID: id, UserID: uid})
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("user", string(uid)).Msg("declined")
}

// EndCall is a hangup by uid.
func (m *CallManager) EndCall(id domain.CallID, uid domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(id, uid, domain.ReasonHangup)
}

// Attach registers conn for user. If it replaces an older connection that was
// in a call, the user leaves that call first.
func (m *CallManager) Attach(user domain.User, conn core.SignalConnection) (ConnectionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, replaced := m.reg.Register(user, conn)
	if replaced && prev.CallID != "" {
		m.leaveLocked(prev.CallID, user.ID, domain.ReasonLeft)
	}
	return prev, replaced
}

// Detach deregisters uid if conn still owns its record and forfeits any call
// the user was in.
func (m *CallManager) Detach(uid domain.UserID, conn core.SignalConnection) (ConnectionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reg.DeregisterConn(uid, conn)
	if !ok {
		return rec, false
	}
	if rec.CallID != "" {
		m.leaveLocked(rec.CallID, uid, domain.ReasonLeft)
	}
	return rec, true
}

// Fanout queues v for every member except the sender. It reports false when
// the call does not exist.
func (m *CallManager) Fanout(id domain.CallID, except domain.UserID, v any) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.calls[id]
	if !ok {
		return 0, false
	}
	return m.fanoutLocked(sess, except, v), true
}

func (m *CallManager) Members(id domain.CallID) ([]domain.UserID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.calls[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(sess.members), true
}

func (m *CallManager) Session(id domain.CallID) (domain.Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.calls[id]
	if !ok {
		return domain.Call{}, false
	}
	return sess.view(), true
}

// ActiveCalls returns all sessions ordered by id.
func (m *CallManager) ActiveCalls() []domain.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Call, 0, len(m.calls))
	for _, sess := range m.calls {
		out = append(out, sess.view())
	}
	slices.SortFunc(out, func(a, b domain.Call) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

func (m *CallManager) leaveLocked(id domain.CallID, uid domain.UserID, reason domain.EndReason) {
	sess, ok := m.calls[id]
	if !ok {
		return
	}
	if rec, ok := m.reg.Get(uid); ok && rec.CallID == id {
		m.reg.SetBusy(uid, false, "")
	}
	i := slices.Index(sess.members, uid)
	if i < 0 {
		return
	}
	sess.members = slices.Delete(sess.members, i, i+1)
	m.fanoutLocked(sess, uid, core.CallEnded{Type: core.EventCallEnded, CallID: id, UserID: uid, Reason: reason})

	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("user", string(uid)).
		Str("reason", string(reason)).Int("members", len(sess.members)).Msg("left")

	if len(sess.members) == 0 {
		delete(m.calls, id)
		m.metrics.SetActiveCalls(len(m.calls))
		log.Info().Str("module", "app.calls").Str("call_id", string(id)).Msg("call removed")
	}
}

func (m *CallManager) fanoutLocked(sess *callSession, except domain.UserID, v any) int {
	n := 0
	for _, uid := range sess.members {
		if uid == except {
			continue
		}
		if m.reg.Send(uid, v) {
			n++
		}
	}
	return n
}

func (m *CallManager) freshIDLocked() domain.CallID {
	for {
		id := m.newID()
		if _, taken := m.calls[id]; !taken {
			return id
		}
	}
}

// normalizeTargets drops empty ids, duplicates and self. Malformed ids stay
// and fail the online lookup like any unknown user.
func normalizeTargets(targets []domain.UserID, self domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(targets))
	for _, t := range targets {
		if t == "" || t == self || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func note(id domain.CallID, uid domain.UserID, reason string) core.CallNote {
	return core.CallNote{
		Type:   core.EventCallNote,
		CallID: id,
		UserID: uid,
		Reason: reason,
		Note:   fmt.Sprintf("user %s is %s", uid, reason),
	}
}
