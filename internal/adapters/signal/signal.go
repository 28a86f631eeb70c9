package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// BoundUserKey is the gin context key under which the HTTP layer stores an
// identity the socket is restricted to.
const BoundUserKey = "bound_user"

type Settings struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	}.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.ReadLimit <= 0 {
		s.ReadLimit = 64 << 10
	}
	if s.PongWait <= 0 {
		s.PongWait = 60 * time.Second
	}
	if s.PingPeriod <= 0 || s.PingPeriod >= s.PongWait {
		s.PingPeriod = s.PongWait * 9 / 10
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 5 * time.Second
	}
	if s.SendBuffer <= 0 {
		s.SendBuffer = 32
	}
	return s
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Limiter  *RingRateLimiter
	settings Settings
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RingRateLimiter, s Settings) *SignalWSController {
	return &SignalWSController{
		Orch:     o,
		Limiter:  limiter,
		settings: s.withDefaults(),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	cid  string

	mu     sync.RWMutex
	closed bool

	// Only touched by the read pump.
	user  domain.UserID
	bound domain.UserID
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side closes it. ctx must outlive the request.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("cid", cid).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.settings.ReadLimit)

	conn := &WsSignalConn{
		conn:  ws,
		send:  make(chan core.Frame, ctl.settings.SendBuffer),
		cid:   cid,
		bound: domain.UserID(c.GetString(BoundUserKey)),
	}

	ctl.Orch.OnConnect(conn)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(conn)
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	ctl.Orch.Out.Send(c, v)
}
