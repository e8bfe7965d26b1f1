package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adsops/capi-bridge/internal/auth"
	"github.com/adsops/capi-bridge/internal/capi"
	"github.com/adsops/capi-bridge/internal/config"
	"github.com/adsops/capi-bridge/internal/handlers"
	"github.com/adsops/capi-bridge/internal/store"
	"github.com/adsops/capi-bridge/internal/webhook"
)

// NewRouter wires public endpoints and the operator API.
// Public: /health, /ready, /webhooks/shopify/orders_paid, /capi/forward, /capi/test
// Operator (X-API-Key): /dispatches
func NewRouter(cfg config.Config, log *logrus.Logger, st *store.PostgresStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	deps := handlers.Deps{
		Verifier:   webhook.NewVerifier(cfg.WebhookSecret, log),
		Dispatcher: capi.NewDispatcher(cfg, log),
		Store:      st,
		Log:        log,
	}

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: the audit DB is the only hard dependency, and only when
	// configured; without one the service is ready as soon as it serves.
	r.GET("/ready", func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterWebhookRoutes(r, deps)
	handlers.RegisterForwardRoutes(r, deps)

	// Operator group; an empty key keeps these routes closed.
	opGroup := r.Group("/")
	opGroup.Use(auth.APIKeyMiddleware(cfg.AdminAPIKey))
	handlers.RegisterDispatchRoutes(opGroup, deps)

	return r
}
