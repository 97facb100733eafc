package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiktok-link/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "link.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storedTokens(t *testing.T, s *SQLiteStore, uid, username string) map[string]any {
	t.Helper()
	var row accountRow
	require.NoError(t, s.db.Where("user_id = ? AND username = ?", uid, username).Take(&row).Error)
	tokens := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(row.Tokens), &tokens))
	return tokens
}

func int64Ptr(v int64) *int64 { return &v }

func TestSQLiteUpsertAccountOmitsAbsentTokens(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, "user123", models.LinkedAccount{
		Tokens: models.AccountTokens{
			AccessToken:  "a1",
			RefreshToken: "r1",
			OpenID:       "o1",
			ExpiresIn:    int64Ptr(86400),
			TokenType:    "Bearer",
		},
		Username:    "bob",
		DisplayName: "Bob",
	}))

	tokens := storedTokens(t, s, "user123", "bob")
	assert.Equal(t, "o1", tokens["open_id"])
	assert.NotContains(t, tokens, "refresh_expires_in")
	assert.NotContains(t, tokens, "scope")
}

func TestSQLiteUpsertAccountMerges(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, "user123", models.LinkedAccount{
		Tokens:       models.AccountTokens{AccessToken: "a1", RefreshToken: "r1", OpenID: "o1", RefreshExpiresIn: int64Ptr(100)},
		Username:     "bob",
		DisplayName:  "Bob",
		ProfileImage: "https://cdn.example.com/bob.jpg",
	}))
	require.NoError(t, s.UpsertAccount(ctx, "user123", models.LinkedAccount{
		Tokens:   models.AccountTokens{AccessToken: "a2", RefreshToken: "r2", OpenID: "o1"},
		Username: "bob",
	}))

	tokens := storedTokens(t, s, "user123", "bob")
	assert.Equal(t, "a2", tokens["access_token"])
	assert.Equal(t, "r2", tokens["refresh_token"])
	assert.EqualValues(t, 100, tokens["refresh_expires_in"], "fields not sent are preserved")

	var row accountRow
	require.NoError(t, s.db.Where("user_id = ? AND username = ?", "user123", "bob").Take(&row).Error)
	assert.Equal(t, "Bob", row.DisplayName)
	assert.Equal(t, "https://cdn.example.com/bob.jpg", row.ProfileImage)
}

func TestSQLiteRefreshSummaryRecounts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		username := fmt.Sprintf("creator%d", i)
		require.NoError(t, s.UpsertAccount(ctx, "user123", models.LinkedAccount{
			Tokens:   models.AccountTokens{AccessToken: "a"},
			Username: username,
		}))
		count, err := s.RefreshSummary(ctx, "user123")
		require.NoError(t, err)
		assert.Equal(t, i+1, count)
	}

	// relinking an existing username does not grow the count
	require.NoError(t, s.UpsertAccount(ctx, "user123", models.LinkedAccount{
		Tokens:   models.AccountTokens{AccessToken: "b"},
		Username: "creator0",
	}))
	count, err := s.RefreshSummary(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// other users are not counted
	count, err = s.RefreshSummary(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var row summaryRow
	require.NoError(t, s.db.Where("user_id = ?", "user123").Take(&row).Error)
	assert.Equal(t, 3, row.AccountCount)
}

func TestSQLiteSaveVideosKeepsTracking(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	items := []models.ContentItem{
		{ID: "v1", Title: "first", IsUp: true},
		{ID: "v2", Title: "second", IsUp: true},
	}
	require.NoError(t, s.SaveVideos(ctx, "user123", "bob", items))

	require.NoError(t, s.db.Model(&contentRow{}).Where("video_id = ?", "v1").Update("is_tracked", true).Error)

	items[0].Title = "first, renamed"
	require.NoError(t, s.SaveVideos(ctx, "user123", "bob", items))

	var rows []contentRow
	require.NoError(t, s.db.Order("video_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "first, renamed", rows[0].Title)
	assert.True(t, rows[0].IsTracked)
	assert.False(t, rows[1].IsTracked)
	assert.True(t, rows[1].IsUp)
}

func TestSQLiteSaveVideosEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.SaveVideos(context.Background(), "user123", "bob", nil))

	var n int64
	require.NoError(t, s.db.Model(&contentRow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSQLiteListAccounts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, "u1", models.LinkedAccount{
		Tokens: models.AccountTokens{AccessToken: "a1", OpenID: "o1"}, Username: "bob",
	}))
	require.NoError(t, s.UpsertAccount(ctx, "u2", models.LinkedAccount{
		Tokens: models.AccountTokens{AccessToken: "a2", OpenID: "o2"}, Username: "alice",
	}))

	refs, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{
		{UserID: "u1", Username: "bob", OpenID: "o1", AccessToken: "a1"},
		{UserID: "u2", Username: "alice", OpenID: "o2", AccessToken: "a2"},
	}, refs)
}

func TestSQLiteSaveVideoMetrics(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	save := func(at time.Time, views int64) {
		t.Helper()
		require.NoError(t, s.SaveVideoMetrics(ctx, "user123", "bob", []models.MetricsSnapshot{
			models.MetricsFromVideo(models.TikTokVideo{ID: "v1", ViewCount: views, LikeCount: 3}, at),
		}))
	}
	stored := func() []metricRow {
		t.Helper()
		var rows []metricRow
		require.NoError(t, s.db.Where("video_id = ?", "v1").Order("taken_at").Find(&rows).Error)
		return rows
	}

	save(t0, 100)
	save(t0.Add(6*time.Hour), 150)
	save(t0.Add(12*time.Hour), 140)

	rows := stored()
	require.Len(t, rows, 3)
	assert.Equal(t, "20240301-1200", rows[0].SnapshotID)
	assert.Equal(t, []int64{0, 50, 0}, []int64{rows[0].NewViewCount, rows[1].NewViewCount, rows[2].NewViewCount})
	assert.Equal(t, int64(3), rows[1].LikeCount)

	// a reading 60h after the first drops everything older than 48h before it
	save(t0.Add(60*time.Hour), 200)
	rows = stored()
	require.Len(t, rows, 2)
	assert.Equal(t, t0.Add(12*time.Hour).Unix(), rows[0].TakenAt)
	assert.Equal(t, int64(60), rows[1].NewViewCount)
}

func TestSQLiteSaveVideoMetricsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.SaveVideoMetrics(context.Background(), "user123", "bob", nil))

	var n int64
	require.NoError(t, s.db.Model(&metricRow{}).Count(&n).Error)
	assert.Zero(t, n)
}
