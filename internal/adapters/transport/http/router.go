package http

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires middleware and routes. ctx bounds the rate limiter's
// background sweeper.
func NewRouter(ctx context.Context, h *Handler) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(h.log))
	router.Use(middleware.Metrics(h.metrics))
	router.Use(middleware.NewRateLimitPerIP(ctx, h.cfg.RateLimitPerSecond, h.cfg.RateLimitBurst, 10_000, time.Hour))

	corsConfig := cors.Config{
		AllowOrigins: h.cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: h.cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		// cors запрещает "*" вместе с credentials
		corsConfig.AllowOrigins = nil
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))

	users := router.Group("/api/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)

	secured := users.Group("", middleware.RequireAuth(h.svc))
	secured.POST("/logout", h.Logout)
	secured.POST("/change-password", h.ChangePassword)
	secured.GET("/current-user", h.CurrentUser)
	secured.PATCH("/update-account", h.UpdateAccount)
	// пути старого клиента
	secured.GET("/get-user", h.CurrentUser)
	secured.PUT("/update-user-details", h.UpdateAccount)
	secured.PATCH("/avatar", h.UpdateAvatar)
	secured.PATCH("/cover-image", h.UpdateCoverImage)

	return router
}
