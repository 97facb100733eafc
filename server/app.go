// Package server assembles the link service from configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tiktok-link/config"
	"tiktok-link/handlers"
	"tiktok-link/oauth"
	"tiktok-link/services"
	"tiktok-link/session"
	"tiktok-link/store"
)

// App is a fully wired service.
type App struct {
	Config *config.AppConfig
	Engine *gin.Engine
	Store  store.Store
	Resync *services.ResyncService
	Logger *zap.Logger
}

// Build opens the store and wires every component.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Type, err)
	}

	app, err := BuildWithStore(cfg, st, http.DefaultClient, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return app, nil
}

// BuildWithStore wires the service on top of an already opened store.
func BuildWithStore(cfg *config.AppConfig, st store.Store, client *http.Client, logger *zap.Logger) (*App, error) {
	tt := cfg.OAuth.TikTok
	strategy, err := oauth.New(cfg.TikTokOAuth2Config(), services.NewTikTokHooks(tt, client), cfg.Session.Secret,
		oauth.WithStateTTL(cfg.Session.TTL))
	if err != nil {
		return nil, fmt.Errorf("init tiktok strategy: %w", err)
	}

	sessions := session.NewManager(session.Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})

	videos := services.NewTikTokClient(tt.VideoListURL, client)
	linker := services.NewLinkService(st, videos, logger)
	tiktok := handlers.NewTikTokHandler(strategy, sessions, linker, cfg.Link.SecureKey, cfg.Link.SuccessURL, logger)

	logger.Info("TikTok link service configured",
		zap.String("environment", cfg.App.Environment),
		zap.String("database", cfg.Database.Type),
		zap.String("client_key", config.MaskString(tt.ClientKey)),
		zap.String("redirect_uri", tt.RedirectURI),
	)

	resync := services.NewResyncService(st, videos, logger)
	admin := handlers.NewAdminHandler(resync, cfg.Admin.Token, logger)

	return &App{
		Config: cfg,
		Engine: NewRouter(cfg, tiktok, admin, logger),
		Store:  st,
		Resync: resync,
		Logger: logger,
	}, nil
}

// BuildResync opens the store and wires only the video resync, for processes
// that run the job without serving the link flow. Closing the returned store
// is up to the caller.
func BuildResync(ctx context.Context, cfg *config.AppConfig, client *http.Client, logger *zap.Logger) (*services.ResyncService, store.Store, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Database.Type, err)
	}
	videos := services.NewTikTokClient(cfg.OAuth.TikTok.VideoListURL, client)
	return services.NewResyncService(st, videos, logger), st, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
