package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tiktok-link/services"
)

// AdminTokenHeader carries the operator token.
const AdminTokenHeader = "X-Admin-Token"

// Resyncer runs one video resync over every linked account.
type Resyncer interface {
	RunOnce(ctx context.Context) (services.ResyncSummary, error)
}

// AdminHandler exposes operator actions.
type AdminHandler struct {
	resync Resyncer
	token  string
	logger *zap.Logger
}

func NewAdminHandler(resync Resyncer, token string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{resync: resync, token: token, logger: logger}
}

// AdminAuthRequired rejects requests without the operator token. An unset
// token rejects everything.
func (h *AdminHandler) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin token required",
				"code":  "ADMIN_AUTH_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// TriggerResync runs the video resync now and reports the outcome.
//
// POST /admin/resync
func (h *AdminHandler) TriggerResync(c *gin.Context) {
	start := time.Now()
	summary, err := h.resync.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error("Manual video resync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "video resync failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "video resync finished",
		"accounts": summary.Accounts,
		"synced":   summary.Synced,
		"failed":   summary.Failed,
		"duration": time.Since(start).String(),
	})
}
