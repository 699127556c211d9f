package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"fermentation-backend/config"
	"fermentation-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	responses := cache.New(ttl, 2*ttl)
	handler.responses = responses
	caching := mw.Cache(responses, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/fermentation/start", handler.StartFermentation)
		api.POST("/fermentation/stop", handler.StopFermentation)

		api.POST("/poll", handler.PollAll)
		api.POST("/batches/:batch_id/poll", handler.PollBatch)

		api.GET("/batches/:batch_id/readings", caching, handler.GetReadings)
		api.GET("/batches/:batch_id/alerts", caching, handler.GetAlerts)
		api.GET("/readings/:id", caching, handler.GetReading)
		api.GET("/alerts", caching, handler.GetAllAlerts)
		api.GET("/alerts/:id", caching, handler.GetAlert)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
