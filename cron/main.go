// Command cron runs the video resync job on its own, outside the web server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tiktok-link/config"
	"tiktok-link/logging"
	"tiktok-link/server"
	"tiktok-link/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	once := flag.Bool("once", false, "run the resync a single time and exit")
	flag.Parse()

	cfg, err := config.LoadResyncConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(cfg.Logging, cfg.App.Environment).Named("cron")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resync, st, err := server.BuildResync(ctx, cfg, http.DefaultClient, logger)
	if err != nil {
		logger.Fatal("Failed to build video resync", zap.Error(err))
	}
	defer st.Close()

	if *once {
		if _, err := resync.RunOnce(ctx); err != nil {
			logger.Error("Video resync failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if !cfg.IsFeatureEnabled("cron") {
		logger.Warn("Cron feature is disabled")
		return
	}

	scheduler, err := services.NewScheduler(cfg, resync, logger)
	if err != nil {
		logger.Fatal("Failed to init scheduler", zap.Error(err))
	}
	scheduler.Start()
	printCronJobs(scheduler, logger)

	<-ctx.Done()
	logger.Info("Stopping scheduler")
	<-scheduler.Stop().Done()
	logger.Info("Scheduler stopped")
}

// printCronJobs logs the next run of every registered job.
func printCronJobs(c *cron.Cron, logger *zap.Logger) {
	entries := c.Entries()
	if len(entries) == 0 {
		logger.Warn("No cron jobs registered")
		return
	}
	for i, entry := range entries {
		logger.Info("Cron job scheduled", zap.Int("job", i+1), zap.Time("next", entry.Next))
	}
}
