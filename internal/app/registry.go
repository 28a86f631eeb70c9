package app

import (
	"slices"
	"sync"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ConnectionRecord is a copy of one registered connection's state.
type ConnectionRecord struct {
	User   domain.User
	Conn   core.SignalConnection
	Busy   bool
	CallID domain.CallID
}

// Registry maps an online user to its transport and availability.
// At most one record exists per user id.
type Registry struct {
	mu      sync.RWMutex
	records map[domain.UserID]*ConnectionRecord
	order   []domain.UserID

	out     *Dispatcher
	metrics *metrics.Metrics
}

func NewRegistry(out *Dispatcher, m *metrics.Metrics) *Registry {
	return &Registry{
		records: make(map[domain.UserID]*ConnectionRecord),
		out:     out,
		metrics: m,
	}
}

// Register inserts or replaces the record for user.ID. The returned record
// is the one that was replaced, if any. Re-registering the same connection
// keeps its call state.
func (r *Registry) Register(user domain.User, conn core.SignalConnection) (ConnectionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		prev     ConnectionRecord
		replaced bool
	)
	if old, ok := r.records[user.ID]; ok {
		if old.Conn == conn {
			old.User = user
			r.broadcastLocked(user.ID, core.PresenceUpdate{Type: core.EventPresenceUpdate, UserID: user.ID, Online: true})
			return ConnectionRecord{}, false
		}
		prev, replaced = *old, true
		r.removeOrderLocked(user.ID)
	}
	r.records[user.ID] = &ConnectionRecord{User: user, Conn: conn}
	r.order = append(r.order, user.ID)
	r.metrics.SetOnline(len(r.records))

	log.Info().Str("module", "app.registry").Str("user", string(user.ID)).Bool("replaced", replaced).Msg("registered")
	r.broadcastLocked(user.ID, core.PresenceUpdate{Type: core.EventPresenceUpdate, UserID: user.ID, Online: true})
	return prev, replaced
}

// Deregister removes the record for uid regardless of which connection owns it.
func (r *Registry) Deregister(uid domain.UserID) (ConnectionRecord, bool) {
	return r.deregister(uid, nil)
}

// DeregisterConn removes the record only while conn still owns it.
func (r *Registry) DeregisterConn(uid domain.UserID, conn core.SignalConnection) (ConnectionRecord, bool) {
	if conn == nil {
		return ConnectionRecord{}, false
	}
	return r.deregister(uid, conn)
}

func (r *Registry) deregister(uid domain.UserID, conn core.SignalConnection) (ConnectionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[uid]
	if !ok || (conn != nil && rec.Conn != conn) {
		return ConnectionRecord{}, false
	}
	delete(r.records, uid)
	r.removeOrderLocked(uid)
	r.metrics.SetOnline(len(r.records))

	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("deregistered")
	r.broadcastLocked(uid, core.PresenceUpdate{Type: core.EventPresenceUpdate, UserID: uid, Online: false})
	return *rec, true
}

func (r *Registry) Get(uid domain.UserID) (ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[uid]
	if !ok {
		return ConnectionRecord{}, false
	}
	return *rec, true
}

// ListOnline returns a snapshot in registration order.
func (r *Registry) ListOnline() []domain.Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Presence, 0, len(r.order))
	for _, uid := range r.order {
		rec := r.records[uid]
		out = append(out, domain.Presence{ID: uid, Username: rec.User.Username, Busy: rec.Busy})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// SetBusy is a no-op for users that are not registered.
func (r *Registry) SetBusy(uid domain.UserID, busy bool, callID domain.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[uid]
	if !ok {
		return
	}
	rec.Busy = busy
	rec.CallID = callID
	if !busy {
		rec.CallID = ""
	}
}

// Send queues v on uid's connection. Offline users are skipped.
func (r *Registry) Send(uid domain.UserID, v any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[uid]
	if !ok {
		return false
	}
	return r.out.Send(rec.Conn, v)
}

func (r *Registry) broadcastLocked(except domain.UserID, v any) {
	for _, uid := range r.order {
		if uid == except {
			continue
		}
		r.out.Send(r.records[uid].Conn, v)
	}
}

func (r *Registry) removeOrderLocked(uid domain.UserID) {
	if i := slices.Index(r.order, uid); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}
