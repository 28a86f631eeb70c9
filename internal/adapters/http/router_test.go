package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/VoiceCall/internal/adapters/identity"
	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	srv    *httptest.Server
	client *http.Client
	jar    http.CookieJar
	orch   *orch.Orchestrator
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>voice</h1>"), 0o644))

	m := metrics.New()
	out := app.NewDispatcher(app.SimplePolicy{Action: app.KickMember}, m)
	reg := app.NewRegistry(out, m)
	calls := app.NewCallManager(reg, m)
	dir := identity.NewDirectory(bcrypt.MinCost)
	o := orch.New(reg, calls, app.NewRelay(calls, m), dir, out)

	cfg := &config.Config{
		Mode:           "test",
		Secret:         "test-secret",
		StaticPath:     static,
		RequireSession: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, Deps{Orch: o, Directory: dir, Metrics: m}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &server{srv: srv, client: &http.Client{Jar: jar}, jar: jar, orch: o}
}

func (s *server) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var m map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &m))
	}
	return resp.StatusCode, m
}

func (s *server) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/ws/signal"
}

func Test_IdentityRoutes(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/api/register", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	id, _ := body["user_id"].(string)
	require.NotEmpty(t, id)

	code, _ = s.do(t, http.MethodPost, "/api/register", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/register", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = s.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["user_id"])

	code, body = s.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, false, body["online"])

	code, body = s.do(t, http.MethodGet, "/api/who/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])

	code, _ = s.do(t, http.MethodGet, "/api/who/nobody", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func Test_SignalRequiresSession(t *testing.T) {
	s := newServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, body := s.do(t, http.MethodPost, "/api/register", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	id := body["user_id"].(string)

	dialer := websocket.Dialer{Jar: s.jar, HandshakeTimeout: time.Second}
	ws, _, err := dialer.Dial(s.wsURL(), nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var m map[string]any
	require.NoError(t, ws.ReadJSON(&m))
	assert.Equal(t, "connected", m["type"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "presence:online", "user_id": id, "username": "alice"}))
	require.NoError(t, ws.ReadJSON(&m))
	assert.Equal(t, "presence:list", m["type"])

	code, body = s.do(t, http.MethodGet, "/api/presence", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["online"], 1)

	code, body = s.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["online"])

	t.Run("logout evicts the socket", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/api/logout", nil)
		require.Equal(t, http.StatusOK, code)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		assert.Eventually(t, func() bool { return len(s.orch.Presence()) == 0 }, 2*time.Second, 10*time.Millisecond)
	})
}

func Test_InfoRoutes(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/api/calls", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["calls"])

	code, body = s.do(t, http.MethodGet, "/api/ice", nil)
	require.Equal(t, http.StatusOK, code)
	servers, ok := body["iceServers"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, servers)

	resp, err := s.client.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "voice_online_users")

	resp, err = s.client.Get(s.srv.URL + "/")
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(raw), "voice")
}
