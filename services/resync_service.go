package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiktok-link/metrics"
	"tiktok-link/models"
	"tiktok-link/store"
)

// ResyncService refreshes the stored video snapshot of every linked account
// with the access token saved at link time, and records a metrics reading for
// each listed video. Tokens are not refreshed, so an expired one just fails
// that account.
type ResyncService struct {
	link   *LinkService
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewResyncService(s store.Store, videos VideoLister, logger *zap.Logger) *ResyncService {
	return &ResyncService{
		link:   NewLinkService(s, videos, logger),
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// ResyncSummary reports what one run did.
type ResyncSummary struct {
	Accounts int
	Synced   int
	Failed   int
}

// RunOnce resyncs all accounts sequentially. It only fails when the account
// list cannot be read.
func (r *ResyncService) RunOnce(ctx context.Context) (ResyncSummary, error) {
	refs, err := r.store.ListAccounts(ctx)
	if err != nil {
		return ResyncSummary{}, fmt.Errorf("list linked accounts: %w", err)
	}

	summary := ResyncSummary{Accounts: len(refs)}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if ref.AccessToken == "" || ref.OpenID == "" {
			r.logger.Warn("Skipping account without stored token",
				zap.String("uid", ref.UserID),
				zap.String("username", ref.Username),
			)
			summary.Failed++
			continue
		}
		videos, ok := r.link.storeVideos(ctx, ref.UserID, ref.Username, ref.AccessToken, ref.OpenID)
		if !ok || !r.snapshotMetrics(ctx, ref, videos) {
			summary.Failed++
			continue
		}
		summary.Synced++
	}

	r.logger.Info("Video resync finished",
		zap.Int("accounts", summary.Accounts),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// snapshotMetrics stores one metrics reading per video, all taken at the same
// time.
func (r *ResyncService) snapshotMetrics(ctx context.Context, ref models.AccountRef, videos []models.TikTokVideo) bool {
	if len(videos) == 0 {
		return true
	}
	at := r.now().UTC().Truncate(time.Second)
	snapshots := make([]models.MetricsSnapshot, 0, len(videos))
	for _, v := range videos {
		snapshots = append(snapshots, models.MetricsFromVideo(v, at))
	}

	if err := r.store.SaveVideoMetrics(ctx, ref.UserID, ref.Username, snapshots); err != nil {
		metrics.MetricsSnapshotsTotal.WithLabelValues("failed").Inc()
		r.logger.Error("Failed to save video metrics",
			zap.String("uid", ref.UserID),
			zap.String("username", ref.Username),
			zap.Error(err),
		)
		return false
	}
	metrics.MetricsSnapshotsTotal.WithLabelValues("ok").Inc()
	return true
}
