package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tiktok-link/config"
	"tiktok-link/handlers"
	"tiktok-link/middleware"
)

// NewRouter mounts the link flow and health routes, plus the metrics and
// admin routes when they are enabled.
func NewRouter(cfg *config.AppConfig, tiktok *handlers.TikTokHandler, admin *handlers.AdminHandler, logger *zap.Logger) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.CORS)))

	r.GET("/", middleware.NoCache(), tiktok.Authorize)
	r.GET("/callback", middleware.NoCache(), tiktok.Callback)
	r.GET("/health", handlers.Health(cfg))

	if cfg.IsFeatureEnabled("metrics") {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if admin != nil && cfg.Admin.Token != "" {
		adminGroup := r.Group("/admin", admin.AdminAuthRequired())
		adminGroup.POST("/resync", admin.TriggerResync)
	}
	return r
}

// corsConfig fills the gaps in the configured CORS policy.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
	}
	if len(cc.AllowOrigins) == 0 {
		cc.AllowOrigins = []string{"*"}
		cc.AllowCredentials = false
	}
	if len(cc.AllowMethods) == 0 {
		cc.AllowMethods = []string{"GET", "OPTIONS"}
	}
	if len(cc.AllowHeaders) == 0 {
		cc.AllowHeaders = []string{"Origin", "Content-Type"}
	}
	return cc
}
