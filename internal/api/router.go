package api

import (
	"github.com/Conceptual-Machines/giftbox-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/giftbox-api/internal/api/middleware"
	"github.com/Conceptual-Machines/giftbox-api/internal/config"
	"github.com/Conceptual-Machines/giftbox-api/internal/metrics"
	"github.com/Conceptual-Machines/giftbox-api/internal/quota"
	"github.com/gin-gonic/gin"
)

func SetupRouter(cfg *config.Config, service handlers.GenerationService, store quota.Store, recorder *metrics.Recorder, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(recorder))

	// CORS middleware
	router.Use(apimiddleware.CORS(cfg.CORSOrigins))

	// Browser session id from the X-Session-ID header
	router.Use(apimiddleware.SessionID())

	// Health check, pinging durable quota stores
	var pinger handlers.Pinger
	if p, ok := store.(handlers.Pinger); ok {
		pinger = p
	}
	healthHandler := handlers.NewHealthHandler(store.Name(), pinger)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version, cfg.ImageBackend, service.MaxGenerations())
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	{
		generationHandler := handlers.NewGenerationHandler(service, cfg.GenerationTimeout)
		v1.POST("/generations", generationHandler.Generate)
		v1.POST("/compile", generationHandler.Compile) // Tags and constraints only, no quota
		v1.GET("/sessions/:id/usage", generationHandler.Usage)
	}

	return router
}
