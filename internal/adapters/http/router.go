package http

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dkeye/VoiceCall/internal/adapters/identity"
	"github.com/dkeye/VoiceCall/internal/adapters/rtc"
	"github.com/dkeye/VoiceCall/internal/adapters/signal"
	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionUserKey = "user_id"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware tags every browser with a long-lived token used to
// correlate its sockets in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Deps struct {
	Orch      *orch.Orchestrator
	Directory *identity.Directory
	Metrics   *metrics.Metrics
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("VoiceSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(cfg.StaticPath, "index.html"))
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(
		deps.Orch,
		signal.NewRingRateLimiter(cfg.CallRateLimit, cfg.CallRateInterval),
		signal.SettingsFrom(cfg),
	)
	ice := rtc.ICEConfig(cfg.ICEServers)

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		if cfg.RequireSession {
			uid := sessionUser(c)
			if uid == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
				return
			}
			c.Set(signal.BoundUserKey, string(uid))
		}
		log.Info().Str("module", "adapters.http").Str("cid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"online": deps.Orch.Presence()})
	})
	api.GET("/calls", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"calls": deps.Orch.Calls.ActiveCalls()})
	})
	api.GET("/ice", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": ice.ICEServers})
	})

	h := &identityHandlers{dir: deps.Directory, orch: deps.Orch}
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.GET("/me", h.me)
	api.GET("/who/:id", h.who)

	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	return r
}

func sessionUser(c *gin.Context) domain.UserID {
	v, _ := sessions.Default(c).Get(sessionUserKey).(string)
	return domain.UserID(v)
}

type identityHandlers struct {
	dir  *identity.Directory
	orch *orch.Orchestrator
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileView struct {
	UserID       domain.UserID `json:"user_id"`
	Username     string        `json:"username"`
	RegisteredAt time.Time     `json:"registered_at"`
	Online       bool          `json:"online"`
	Busy         bool          `json:"busy"`
}

func (h *identityHandlers) view(p identity.Profile) profileView {
	v := profileView{UserID: p.ID, Username: p.Username, RegisteredAt: p.RegisteredAt}
	if rec, ok := h.orch.Registry.Get(p.ID); ok {
		v.Online = true
		v.Busy = rec.Busy
	}
	return v
}

func (h *identityHandlers) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	user, err := h.dir.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	h.startSession(c, user)
}

func (h *identityHandlers) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	user, err := h.dir.Register(req.Username, req.Password)
	switch {
	case errors.Is(err, identity.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.startSession(c, user)
}

func (h *identityHandlers) startSession(c *gin.Context, user domain.User) {
	sess := sessions.Default(c)
	sess.Set(sessionUserKey, string(user.ID))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// logout forgets the session and drops the user's live socket, which then
// goes through the normal disconnect path.
func (h *identityHandlers) logout(c *gin.Context) {
	uid := sessionUser(c)
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	evicted := false
	if uid != "" {
		evicted = h.orch.Evict(uid)
	}
	log.Info().Str("module", "adapters.http").Str("user", string(uid)).Bool("evicted", evicted).Msg("logout")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *identityHandlers) me(c *gin.Context) {
	p, ok := h.dir.Lookup(sessionUser(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

func (h *identityHandlers) who(c *gin.Context) {
	p, ok := h.dir.Lookup(domain.UserID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}
