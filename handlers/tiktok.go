package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tiktok-link/metrics"
	"tiktok-link/oauth"
	"tiktok-link/services"
	"tiktok-link/session"
)

// Linker persists a completed authorization for a user.
type Linker interface {
	Link(ctx context.Context, uid string, result *oauth.Result) error
}

// TikTokHandler serves the two halves of the link flow.
type TikTokHandler struct {
	strategy   *oauth.Strategy
	sessions   *session.Manager
	linker     Linker
	secureKey  string
	successURL string
	logger     *zap.Logger
}

func NewTikTokHandler(
	strategy *oauth.Strategy,
	sessions *session.Manager,
	linker Linker,
	secureKey, successURL string,
	logger *zap.Logger,
) *TikTokHandler {
	return &TikTokHandler{
		strategy:   strategy,
		sessions:   sessions,
		linker:     linker,
		secureKey:  secureKey,
		successURL: successURL,
		logger:     logger,
	}
}

// Authorize binds uid to the browser session and sends the browser to the
// TikTok consent page.
//
// GET /?uid=<uid>&key=<secure key>
func (h *TikTokHandler) Authorize(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		metrics.AuthorizeRequestsTotal.WithLabelValues("missing_uid").Inc()
		c.String(http.StatusBadRequest, "Missing UID")
		return
	}

	key := c.Query("key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.secureKey)) != 1 {
		metrics.AuthorizeRequestsTotal.WithLabelValues("unauthorized").Inc()
		h.logger.Warn("Rejected link request with bad key", zap.String("uid", uid))
		c.String(http.StatusUnauthorized, "Unauthorized request")
		return
	}

	authURL, state, err := h.strategy.AuthorizeURL(services.TikTokScopes)
	if err != nil {
		metrics.AuthorizeRequestsTotal.WithLabelValues("error").Inc()
		h.logger.Error("Failed to build authorization URL", zap.Error(err))
		c.String(http.StatusInternalServerError, "Authentication Error: "+err.Error())
		return
	}

	if err := h.sessions.Save(c.Writer, uid, state); err != nil {
		metrics.AuthorizeRequestsTotal.WithLabelValues("error").Inc()
		h.logger.Error("Failed to save session", zap.Error(err))
		c.String(http.StatusInternalServerError, "Session error")
		return
	}

	metrics.AuthorizeRequestsTotal.WithLabelValues("redirected").Inc()
	h.logger.Info("Redirecting to TikTok", zap.String("uid", uid))
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the code exchange, stores the linked account and its
// videos, and sends the browser to the success page.
//
// GET /callback?code=...&state=...
func (h *TikTokHandler) Callback(c *gin.Context) {
	// the pipeline runs to completion even if the browser goes away
	ctx := context.WithoutCancel(c.Request.Context())
	query := c.Request.URL.Query()

	// a state issued to another browser's session is rejected before the code
	// is spent; a missing session is reported after authentication
	bound, sessionErr := h.sessions.Load(c.Request)
	if sessionErr == nil && query.Get("error") == "" && !bound.Matches(query.Get("state")) {
		metrics.CallbacksTotal.WithLabelValues("no_user").Inc()
		h.logger.Warn("Callback state was not issued to this session", zap.String("uid", bound.UID))
		c.String(http.StatusBadRequest, "Authentication Failed: No user data")
		return
	}

	result, err := h.strategy.Authenticate(ctx, query)
	if errors.Is(err, oauth.ErrAuthenticationFailed) {
		metrics.CallbacksTotal.WithLabelValues("no_user").Inc()
		h.logger.Warn("TikTok authentication failed", zap.Error(err))
		c.String(http.StatusBadRequest, "Authentication Failed: No user data")
		return
	}
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("auth_error").Inc()
		h.logger.Error("TikTok authentication error", zap.Error(err))
		c.String(http.StatusInternalServerError, "Authentication Error: "+err.Error())
		return
	}

	if sessionErr != nil {
		metrics.CallbacksTotal.WithLabelValues("no_session").Inc()
		h.logger.Warn("Callback without a valid session",
			zap.String("username", result.Profile.Username),
			zap.Error(sessionErr),
		)
		c.String(http.StatusBadRequest, "Session expired or invalid. Please try again.")
		return
	}
	uid := bound.UID

	if err := h.linker.Link(ctx, uid, result); err != nil {
		metrics.CallbacksTotal.WithLabelValues("save_error").Inc()
		h.logger.Error("Error saving TikTok data",
			zap.String("uid", uid),
			zap.String("username", result.Profile.Username),
			zap.Error(err),
		)
		c.String(http.StatusInternalServerError, "Error saving TikTok data")
		return
	}

	h.sessions.Clear(c.Writer)
	metrics.CallbacksTotal.WithLabelValues("linked").Inc()
	c.Redirect(http.StatusFound, h.successURL)
}
