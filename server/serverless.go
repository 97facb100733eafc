package server

import (
	"context"
	"net/http"
	"os"
	"sync"

	"tiktok-link/config"
	"tiktok-link/logging"
)

var (
	shared     *App
	sharedErr  error
	sharedOnce sync.Once
)

// Shared returns the process-wide App used by serverless entry points. It is
// built on first use from CONFIG_PATH (or the default path) and kept for the
// life of the process.
func Shared() (*App, error) {
	sharedOnce.Do(func() {
		cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
		if err != nil {
			sharedErr = err
			return
		}
		shared, sharedErr = Build(context.Background(), cfg, logging.New(cfg.Logging, cfg.App.Environment))
	})
	return shared, sharedErr
}

// Forward serves r on the shared App under path.
func Forward(w http.ResponseWriter, r *http.Request, path string) {
	app, err := Shared()
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = path
	r2.URL.RawPath = ""
	app.Engine.ServeHTTP(w, r2)
}
