package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tiktok-link/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertAccount(ctx context.Context, uid string, account models.LinkedAccount) error {
	args := m.Called(ctx, uid, account)
	return args.Error(0)
}

func (m *mockStore) RefreshSummary(ctx context.Context, uid string) (int, error) {
	args := m.Called(ctx, uid)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) SaveVideos(ctx context.Context, uid, username string, items []models.ContentItem) error {
	args := m.Called(ctx, uid, username, items)
	return args.Error(0)
}

func (m *mockStore) SaveVideoMetrics(ctx context.Context, uid, username string, snapshots []models.MetricsSnapshot) error {
	args := m.Called(ctx, uid, username, snapshots)
	return args.Error(0)
}

func (m *mockStore) ListAccounts(ctx context.Context) ([]models.AccountRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AccountRef), args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockVideoLister struct {
	mock.Mock
}

func (m *mockVideoLister) ListVideos(ctx context.Context, accessToken, openID string) ([]models.TikTokVideo, error) {
	args := m.Called(ctx, accessToken, openID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TikTokVideo), args.Error(1)
}
