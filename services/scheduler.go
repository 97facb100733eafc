package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tiktok-link/config"
)

// ResyncScheduleName is the cron.schedules key of the video resync job.
const ResyncScheduleName = "video_resync"

const defaultResyncSchedule = "0 0 */6 * * *"

// resyncTimeout bounds a single scheduled run.
const resyncTimeout = 30 * time.Minute

// NewScheduler registers the video resync job on a seconds-precision cron.
// The schedule comes from cron.schedules.video_resync, or every six hours when
// it is not configured. The returned scheduler is not started.
func NewScheduler(cfg *config.AppConfig, resync *ResyncService, logger *zap.Logger) (*cron.Cron, error) {
	schedule, ok := cfg.GetCronSchedule(ResyncScheduleName)
	if !ok || schedule == "" {
		schedule = defaultResyncSchedule
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()

		logger.Info("Video resync started")
		if _, err := resync.RunOnce(ctx); err != nil {
			logger.Error("Video resync failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register %s schedule %q: %w", ResyncScheduleName, schedule, err)
	}

	logger.Info("Cron job registered", zap.String("job", ResyncScheduleName), zap.String("schedule", schedule))
	return c, nil
}
