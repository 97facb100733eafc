// Package store persists linked accounts, the per-platform summary and the
// video snapshot under users/{uid}/SocialMediaPlatforms/TikTok.
package store

import (
	"context"
	"fmt"
	"time"

	"tiktok-link/config"
	"tiktok-link/models"
)

// MetricsRetention is how long Metrics snapshots are kept.
const MetricsRetention = 48 * time.Hour

// Store is the document store used by the link flow. Every write is a merge:
// fields that are not part of the payload keep their stored value.
type Store interface {
	// UpsertAccount merges account into Accounts/{username} and stamps updatedAt.
	UpsertAccount(ctx context.Context, uid string, account models.LinkedAccount) error

	// RefreshSummary recounts the Accounts children and merges the count into
	// the platform document. It returns the count it wrote.
	RefreshSummary(ctx context.Context, uid string) (int, error)

	// SaveVideos writes items under Accounts/{username}/Videos in one atomic
	// batch. New documents get is_tracked=false; existing ones keep theirs.
	SaveVideos(ctx context.Context, uid, username string, items []models.ContentItem) error

	// SaveVideoMetrics adds one Metrics snapshot per video under
	// Videos/{id}/Metrics, with the view growth since that video's previous
	// snapshot, and drops snapshots older than MetricsRetention.
	SaveVideoMetrics(ctx context.Context, uid, username string, snapshots []models.MetricsSnapshot) error

	// ListAccounts returns every linked TikTok account.
	ListAccounts(ctx context.Context) ([]models.AccountRef, error)

	Close() error
}

// Open returns the backend selected by cfg.Database.Type.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Database.Type {
	case "firestore":
		return NewFirestoreStore(ctx, cfg.Firebase)
	case "sqlite":
		return NewSQLiteStore(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}
