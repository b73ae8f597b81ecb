package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Chatline/internal/adapters/signal"
	"github.com/dkeye/Chatline/internal/app/orch"
	"github.com/dkeye/Chatline/internal/config"
	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionUserKey = "user_id"

// Deps are the collaborators the router exposes over REST.
type Deps struct {
	Orch     *orch.Orchestrator
	Messages core.MessageStore
	Profiles core.ProfileDirectory
}

// SessionIdentityMiddleware copies the user bound to the cookie session into
// the gin context for the websocket controller.
func SessionIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := sessions.Default(c).Get(sessionUserKey).(string); ok && uid != "" {
			c.Set(signal.IdentityKey, uid)
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("ChatlineSession", store))
	r.Use(SessionIdentityMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "online": deps.Orch.Registry.Len()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{deps: deps, cfg: cfg}
	api := r.Group("/api")

	api.GET("/online", h.online)
	api.GET("/ice", h.iceServers)
	api.GET("/calls/settings", h.callSettings)

	api.POST("/session", h.bindSession)
	api.GET("/session", h.getSession)
	api.DELETE("/session", h.clearSession)

	api.POST("/users", h.upsertProfile)
	api.GET("/users/:id", h.profile)

	api.POST("/messages", h.createMessage)
	api.GET("/messages/:from/:to", h.conversation)

	ctrl := signal.NewSignalWSController(deps.Orch, signal.Options{
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		PongWait:        cfg.PongWait(),
		WriteWait:       cfg.WriteWait,
		SendBuffer:      cfg.SendBuffer,
		AllowedOrigins:  cfg.AllowedOrigins,
		EventsPerSecond: cfg.RateLimit.EventsPerSecond,
		Burst:           cfg.RateLimit.Burst,
	})
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("identity", c.GetString(signal.IdentityKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

type handlers struct {
	deps Deps
	cfg  *config.Config
}

func (h *handlers) online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"onlineUsers": h.deps.Orch.Presence.Online()})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.cfg.ICEServers})
}

// callSettings is what a client needs before placing or answering calls.
func (h *handlers) callSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"callTimeoutMs": h.cfg.CallTimeout.Milliseconds(),
		"iceServers":    h.cfg.ICEServers,
	})
}

func (h *handlers) bindSession(c *gin.Context) {
	var req struct {
		ID domain.UserID `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	sess := sessions.Default(c)
	sess.Set(sessionUserKey, string(req.ID))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ID})
}

func (h *handlers) getSession(c *gin.Context) {
	uid, _ := sessions.Default(c).Get(sessionUserKey).(string)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": uid})
}

func (h *handlers) clearSession(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *handlers) upsertProfile(c *gin.Context) {
	var p domain.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
		return
	}
	if err := h.deps.Profiles.UpsertProfile(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) profile(c *gin.Context) {
	p, err := h.deps.Profiles.Profile(c.Request.Context(), domain.UserID(c.Param("id")))
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("profile lookup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createMessage(c *gin.Context) {
	var req struct {
		From    domain.UserID `json:"from"`
		To      domain.UserID `json:"to"`
		Type    string        `json:"type"`
		Message string        `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
		return
	}
	status := domain.StatusSent
	if _, online := h.deps.Orch.Registry.LookupID(req.To); online {
		status = domain.StatusDelivered
	}
	msg, err := h.deps.Messages.CreateMessage(c.Request.Context(), domain.StoredMessage{
		SenderID:    req.From,
		RecipientID: req.To,
		Type:        req.Type,
		Content:     req.Message,
		Status:      status,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *handlers) conversation(c *gin.Context) {
	from, to := domain.UserID(c.Param("from")), domain.UserID(c.Param("to"))
	msgs, err := h.deps.Messages.Conversation(c.Request.Context(), from, to)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
