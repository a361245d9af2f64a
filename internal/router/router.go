package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docintake/internal/handler"
	"docintake/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Document *handler.DocumentHandler
	Webhook  *handler.WebhookHandler
	Health   *handler.HealthHandler
	// Metrics serves the prometheus exposition; nil leaves /metrics unmounted.
	Metrics http.Handler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, obs middleware.RequestObserver, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	if obs != nil {
		r.Use(middleware.Metrics(obs))
	}

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := r.Group("/api/v1")

	// Storage notifications
	hooks := v1.Group("/webhooks")
	hooks.POST("/pubsub", h.Webhook.PubSub)
	hooks.POST("/gcs", h.Webhook.CloudEvent)

	docs := v1.Group("/documents")
	docs.GET("/:id", h.Document.GetByID)
	docs.GET("/:id/exceptions", h.Document.ListExceptions)
	docs.GET("/:id/audit", h.Document.ListAudit)
	docs.POST("/:id/reprocess", h.Document.Reprocess)

	return r
}
