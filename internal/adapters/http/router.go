package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/adapters/signal"
	"github.com/dkeye/Chathub/internal/app/orch"
	"github.com/dkeye/Chathub/internal/config"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
	rest "github.com/dkeye/Chathub/internal/transport/http"
)

const (
	UserHeader     = "X-User-ID"
	sessionUserKey = "uid"
)

// IdentityMiddleware takes the user authenticated upstream from UserHeader
// and remembers it in the cookie session, so a browser that opens the socket
// without the header is still known.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		user := c.GetHeader(UserHeader)
		if user != "" {
			id, err := domain.ParseUserID(user)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, rest.ErrorResponse{Code: "validation", Message: err.Error()})
				return
			}
			user = string(id)
			if prev, _ := sess.Get(sessionUserKey).(string); prev != user {
				sess.Set(sessionUserKey, user)
				if err := sess.Save(); err != nil {
					log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
				}
			}
		} else if v, ok := sess.Get(sessionUserKey).(string); ok {
			user = v
		}
		if user != "" {
			c.Set(core.UserContextKey, user)
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, hub *orch.Orchestrator, ctl *signal.SignalWSController, gatherer prometheus.Gatherer) *gin.Engine {
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
	r.Use(sessions.Sessions("ChathubSessions", store))
	r.Use(IdentityMiddleware())

	r.GET("/healthz", rest.Health)
	if cfg.Metrics.Enabled && gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("user", c.GetString(core.UserContextKey)).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})
	rest.NewHandlers(hub, hub.Presence).Register(api)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Bool("metrics", cfg.Metrics.Enabled).Msg("router setup")
	return r
}
