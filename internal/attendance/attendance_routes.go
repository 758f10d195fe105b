package attendance

import (
	"go-presence/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouteConfig struct {
	JWTSecret   string
	DeviceRate  rate.Limit
	DeviceBurst int
	UserRate    rate.Limit
	UserBurst   int
	Logger      *zap.Logger
}

func (c RouteConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.L()
	}
	return c.Logger
}

// RegisterDeviceRoutes mounts the unauthenticated device webhook. ADMS
// firmware posts to /iclock/cdata at the server root.
func RegisterDeviceRoutes(router *gin.Engine, h *Handler, cfg RouteConfig) {
	deviceLimit := middleware.RateLimitByIP(cfg.DeviceRate, cfg.DeviceBurst)
	logged := middleware.ContextLogger(cfg.logger())

	iclock := router.Group("/iclock", deviceLimit, logged)
	{
		iclock.GET("/cdata", h.DeviceHandshake)
		iclock.POST("/cdata", h.DeviceUpload)
	}

	router.POST("/api/v1/attendances/device", deviceLimit, logged, h.DeviceUpload)
}

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, rdb *redis.Client, cfg RouteConfig) {
	attendances := r.Group("/attendances")
	attendances.Use(
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.ExtractUserID(),
		middleware.ContextLogger(cfg.logger()),
	)
	{
		attendances.GET("",
			middleware.RBACAuthorize(rbacService, "attendance", "read"),
			middleware.RBACFlag(rbacService, "attendance", "read_all", "has_read_all"),
			h.GetAll,
		)
		attendances.POST("/punch",
			middleware.RBACAuthorize(rbacService, "attendance", "punch"),
			middleware.RateLimitByUser(cfg.UserRate, cfg.UserBurst),
			middleware.Idempotency(rdb),
			h.WebPunch,
		)
	}
}
