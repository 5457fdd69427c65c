package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/config"
	"github.com/iliyamo/cartelera/internal/handler"
	"github.com/iliyamo/cartelera/internal/middleware"
	"github.com/iliyamo/cartelera/internal/utils"
)

// RegisterRoutes registers the health check and the /v1 listing routes.
// Everything under /v1 is rate limited when Redis is available; the full
// refresh additionally requires an ADMIN token.
func RegisterRoutes(e *echo.Echo, h *handler.ListingHandler, cfg config.Config, rdb *redis.Client, log *zap.Logger) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	v1.GET("/cinemas", h.ListVenues)
	v1.GET("/cinemas/:id", h.GetVenue)
	v1.GET("/cinemas/:id/shows", h.GetShows)
	v1.GET("/cinemas/:id/shows/enriched", h.GetEnrichedShows)
	v1.GET("/cache", h.CacheStatus)

	v1.POST("/cache/refresh", h.Refresh,
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
}
