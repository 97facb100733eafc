package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tiktok-link/models"
)

type accountRow struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	Platform     string `gorm:"primaryKey;column:platform"`
	Username     string `gorm:"primaryKey;column:username"`
	Tokens       string `gorm:"column:tokens;not null"` // JSON object
	ProfileImage string `gorm:"column:profile_image"`
	DisplayName  string `gorm:"column:display_name"`
	UpdatedAt    time.Time
}

func (accountRow) TableName() string { return "linked_accounts" }

type summaryRow struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	Platform     string `gorm:"primaryKey;column:platform"`
	AccountCount int    `gorm:"column:account_count"`
	UpdatedAt    time.Time
}

func (summaryRow) TableName() string { return "platform_summaries" }

type contentRow struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	Platform     string `gorm:"primaryKey;column:platform"`
	Username     string `gorm:"primaryKey;column:username"`
	VideoID      string `gorm:"primaryKey;column:video_id"`
	Title        string `gorm:"column:title"`
	Description  string `gorm:"column:description"`
	CreateTime   int64  `gorm:"column:create_time"`
	ShareURL     string `gorm:"column:share_url"`
	ThumbnailURL string `gorm:"column:thumbnail_url"`
	IsUp         bool   `gorm:"column:is_up"`
	IsTracked    bool   `gorm:"column:is_tracked;not null;default:false"`
}

func (contentRow) TableName() string { return "content_items" }

type metricRow struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	Platform     string `gorm:"primaryKey;column:platform"`
	Username     string `gorm:"primaryKey;column:username"`
	VideoID      string `gorm:"primaryKey;column:video_id"`
	SnapshotID   string `gorm:"primaryKey;column:snapshot_id"`
	ViewCount    int64  `gorm:"column:view_count"`
	LikeCount    int64  `gorm:"column:like_count"`
	CommentCount int64  `gorm:"column:comment_count"`
	ShareCount   int64  `gorm:"column:share_count"`
	NewViewCount int64  `gorm:"column:new_view_count"`
	TakenAt      int64  `gorm:"column:taken_at;index"` // unix seconds
}

func (metricRow) TableName() string { return "video_metrics" }

// SQLiteStore mirrors the Firestore layout in relational tables. It backs
// local development and single-node deployments.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&accountRow{}, &summaryRow{}, &contentRow{}, &metricRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) UpsertAccount(ctx context.Context, uid string, account models.LinkedAccount) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountRow
		err := tx.Where("user_id = ? AND platform = ? AND username = ?", uid, models.PlatformTikTok, account.Username).
			Take(&row).Error
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			return err
		}

		tokens := map[string]any{}
		if row.Tokens != "" {
			if err := json.Unmarshal([]byte(row.Tokens), &tokens); err != nil {
				return fmt.Errorf("decode stored tokens: %w", err)
			}
		}
		for k, v := range account.Tokens.Fields() {
			tokens[k] = v
		}
		encoded, err := json.Marshal(tokens)
		if err != nil {
			return err
		}

		row.UserID = uid
		row.Platform = models.PlatformTikTok
		row.Username = account.Username
		row.Tokens = string(encoded)
		if account.ProfileImage != "" {
			row.ProfileImage = account.ProfileImage
		}
		if account.DisplayName != "" {
			row.DisplayName = account.DisplayName
		}
		row.UpdatedAt = s.now()

		if isNew {
			return tx.Create(&row).Error
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return fmt.Errorf("save account %s: %w", account.Username, err)
	}
	return nil
}

func (s *SQLiteStore) RefreshSummary(ctx context.Context, uid string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&accountRow{}).
			Where("user_id = ? AND platform = ?", uid, models.PlatformTikTok).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_count", "updated_at"}),
		}).Create(&summaryRow{
			UserID:       uid,
			Platform:     models.PlatformTikTok,
			AccountCount: int(count),
			UpdatedAt:    s.now(),
		}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("refresh summary: %w", err)
	}
	return int(count), nil
}

func (s *SQLiteStore) SaveVideos(ctx context.Context, uid, username string, items []models.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			where := tx.Model(&contentRow{}).Where(
				"user_id = ? AND platform = ? AND username = ? AND video_id = ?",
				uid, models.PlatformTikTok, username, item.ID,
			)
			res := where.Updates(item.Fields())
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				continue
			}
			if err := tx.Create(&contentRow{
				UserID:       uid,
				Platform:     models.PlatformTikTok,
				Username:     username,
				VideoID:      item.ID,
				Title:        item.Title,
				Description:  item.Description,
				CreateTime:   item.CreateTime,
				ShareURL:     item.ShareURL,
				ThumbnailURL: item.ThumbnailURL,
				IsUp:         item.IsUp,
				IsTracked:    false,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save videos: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveVideoMetrics(ctx context.Context, uid, username string, snapshots []models.MetricsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, snap := range snapshots {
			video := func() *gorm.DB {
				return tx.Model(&metricRow{}).Where(
					"user_id = ? AND platform = ? AND username = ? AND video_id = ?",
					uid, models.PlatformTikTok, username, snap.VideoID,
				)
			}
			takenAt := snap.Timestamp.Unix()

			var prev metricRow
			err := video().Where("taken_at < ?", takenAt).Order("taken_at DESC").Take(&prev).Error
			switch {
			case err == nil:
				snap = snap.After(prev.ViewCount)
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&metricRow{
				UserID:       uid,
				Platform:     models.PlatformTikTok,
				Username:     username,
				VideoID:      snap.VideoID,
				SnapshotID:   snap.ID(),
				ViewCount:    snap.ViewCount,
				LikeCount:    snap.LikeCount,
				CommentCount: snap.CommentCount,
				ShareCount:   snap.ShareCount,
				NewViewCount: snap.NewViewCount,
				TakenAt:      takenAt,
			}).Error; err != nil {
				return err
			}

			cutoff := snap.Timestamp.Add(-MetricsRetention).Unix()
			if err := video().Where("taken_at < ?", cutoff).Delete(&metricRow{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save video metrics: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.AccountRef, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).
		Where("platform = ?", models.PlatformTikTok).
		Order("user_id, username").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	refs := make([]models.AccountRef, 0, len(rows))
	for _, row := range rows {
		var tokens map[string]interface{}
		if err := json.Unmarshal([]byte(row.Tokens), &tokens); err != nil {
			return nil, fmt.Errorf("decode tokens for %s/%s: %w", row.UserID, row.Username, err)
		}
		refs = append(refs, models.AccountRef{
			UserID:      row.UserID,
			Username:    row.Username,
			OpenID:      getStringFromData(tokens, "open_id"),
			AccessToken: getStringFromData(tokens, "access_token"),
		})
	}
	return refs, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
