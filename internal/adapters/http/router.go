package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/talks/internal/adapters/signal"
	"github.com/dkeye/talks/internal/app/orch"
	"github.com/dkeye/talks/internal/config"
	"github.com/dkeye/talks/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const serviceName = "talks"

// Deps are the pieces the router hands requests to.
type Deps struct {
	Orch     *orch.Orchestrator
	Messages core.MessageStore
	Channels ChannelDirectory
	Codec    core.Codec
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
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("TalksSessions", store))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC(),
		})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	verifier := NewVerifier(cfg.Secret)
	ctrl := signal.NewSignalWSController(deps.Orch, signal.Options{
		ReadLimit:           cfg.ReadLimit,
		PingPeriod:          cfg.PingPeriod,
		PongWait:            cfg.PongWait,
		WriteWait:           cfg.WriteWait,
		SendBuffer:          cfg.SendBuffer,
		MessageRateLimit:    cfg.MessageRateLimit,
		MessageRateInterval: cfg.MessageRateInterval,
		AllowedOrigins:      cfg.AllowedOrigins,
	})
	history := &HistoryHandler{Messages: deps.Messages, Codec: deps.Codec, DefaultLimit: cfg.HistoryLimit}

	api := r.Group("/api", IdentityMiddleware(verifier))
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("user", string(identity(c).ID)).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/messages/channel/:channelId", history.Channel)
	api.GET("/messages/direct/:userId", history.Direct)
	api.GET("/users/online", OnlineUsers(deps.Orch.Presence))
	api.GET("/channels/:channelId", ChannelInfo(deps.Channels))
	api.GET("/rooms", Rooms(deps.Orch.Hub))

	return r
}
