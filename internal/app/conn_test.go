package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/stretchr/testify/require"
)

// testConn records every queued frame.
type testConn struct {
	mu     sync.Mutex
	frames []core.Frame
	limit  int
	closed bool
}

func (c *testConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	if c.limit > 0 && len(c.frames) >= c.limit {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *testConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *testConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// messages decodes all frames of the given type.
func (c *testConn) messages(t *testing.T, typ string) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *testConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var m struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &m)
		out = append(out, m.Type)
	}
	return out
}

func (c *testConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type fixture struct {
	reg   *Registry
	calls *CallManager
	relay *Relay
	conns map[domain.UserID]*testConn
}

func newFixture(t *testing.T, online ...domain.UserID) *fixture {
	t.Helper()
	out := NewDispatcher(SimplePolicy{Action: KickMember}, nil)
	reg := NewRegistry(out, nil)
	calls := NewCallManager(reg, nil)
	f := &fixture{
		reg:   reg,
		calls: calls,
		relay: NewRelay(calls, nil),
		conns: make(map[domain.UserID]*testConn),
	}
	for _, uid := range online {
		f.connect(uid)
	}
	for _, c := range f.conns {
		c.reset()
	}
	return f
}

func (f *fixture) connect(uid domain.UserID) *testConn {
	c := &testConn{}
	f.conns[uid] = c
	f.calls.Attach(domain.User{ID: uid, Username: "user-" + string(uid)}, c)
	return c
}

// checkInvariants asserts the busy/membership relationship for every user.
func (f *fixture) checkInvariants(t *testing.T) {
	t.Helper()
	seen := map[domain.UserID]domain.CallID{}
	for _, call := range f.calls.ActiveCalls() {
		require.NotEmpty(t, call.Members, "call %s has no members", call.ID)
		for _, uid := range call.Members {
			prev, dup := seen[uid]
			require.False(t, dup, "user %s in %s and %s", uid, prev, call.ID)
			seen[uid] = call.ID
		}
	}
	for _, p := range f.reg.ListOnline() {
		rec, ok := f.reg.Get(p.ID)
		require.True(t, ok)
		callID, member := seen[p.ID]
		require.Equal(t, member, rec.Busy, "busy flag of %s", p.ID)
		if member {
			require.Equal(t, callID, rec.CallID)
		} else {
			require.Empty(t, rec.CallID)
		}
	}
}
