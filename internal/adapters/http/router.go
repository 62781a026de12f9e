// Package http exposes the session runtime to a local UI over a gin JSON API.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/app/orch"
	"github.com/dkeye/voice-client/internal/config"
	"github.com/dkeye/voice-client/internal/metrics"
)

const clientTokenCookie = "ct"

// InteractionTrigger fires pending one-shot interaction listeners.
type InteractionTrigger interface {
	Fire() int
}

type Bridge struct {
	Orch         *orch.Orchestrator
	Interactions InteractionTrigger
	Events       *EventHub
	Metrics      *metrics.Metrics
	Limiter      *RateLimiter
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware tags every caller with a cookie-backed token used for rate limiting.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, b *Bridge) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	if b.Metrics != nil {
		r.GET("/metrics", gin.WrapH(b.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/media", b.acquireMedia)
	api.POST("/media/tracks", b.setTrackEnabled)
	api.POST("/surfaces/:id/attach-local", b.attachLocal)

	api.POST("/peers/:id", b.createPeer)
	api.DELETE("/peers/:id", b.closePeer)
	api.POST("/peers/:id/offer", b.makeOffer)
	api.POST("/peers/:id/answer", b.makeAnswer)
	api.PUT("/peers/:id/remote-description", b.setRemoteDescription)
	api.POST("/peers/:id/candidates", b.addCandidate)

	api.PUT("/session", b.updateSession)
	api.POST("/session/kick", b.rateLimited(), b.selfKick)
	api.DELETE("/session/room", b.rateLimited(), b.removeRoom)

	api.POST("/interaction", b.interaction)
	if b.Events != nil {
		api.GET("/events", b.events)
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
