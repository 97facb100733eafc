package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiktok-link/config"
)

// Health reports the running app and its environment.
func Health(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"app":         cfg.App.Name,
			"version":     cfg.App.Version,
			"environment": cfg.App.Environment,
			"database":    cfg.Database.Type,
		})
	}
}
