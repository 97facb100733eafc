package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tiktok-link/metrics"
	"tiktok-link/models"
	"tiktok-link/oauth"
	"tiktok-link/store"
)

// VideoLister is the part of TikTokClient the link flow needs.
type VideoLister interface {
	ListVideos(ctx context.Context, accessToken, openID string) ([]models.TikTokVideo, error)
}

// LinkService persists a completed TikTok authorization for a user.
type LinkService struct {
	store  store.Store
	videos VideoLister
	logger *zap.Logger
}

func NewLinkService(s store.Store, videos VideoLister, logger *zap.Logger) *LinkService {
	return &LinkService{store: s, videos: videos, logger: logger}
}

// Link writes the linked account and the platform summary, then syncs the
// account's recent videos. Only the account and summary writes can fail the
// call; the video sync is logged and otherwise ignored.
func (s *LinkService) Link(ctx context.Context, uid string, result *oauth.Result) error {
	if result == nil || result.Token == nil || result.Profile == nil {
		return errors.New("link: incomplete authorization result")
	}

	tokens, err := accountTokens(result)
	if err != nil {
		return err
	}
	account := models.LinkedAccount{
		Tokens:       tokens,
		ProfileImage: result.Profile.ProfileImage,
		Username:     result.Profile.Username,
		DisplayName:  result.Profile.DisplayName,
	}

	if err := s.store.UpsertAccount(ctx, uid, account); err != nil {
		return err
	}
	count, err := s.store.RefreshSummary(ctx, uid)
	if err != nil {
		return err
	}
	s.logger.Info("TikTok account linked",
		zap.String("uid", uid),
		zap.String("username", account.Username),
		zap.Int("account_count", count),
	)

	s.syncVideos(ctx, uid, account.Username, tokens.AccessToken, tokens.OpenID)
	return nil
}

// syncVideos fetches and stores the account's videos. Failures are logged.
func (s *LinkService) syncVideos(ctx context.Context, uid, username, accessToken, openID string) bool {
	_, ok := s.storeVideos(ctx, uid, username, accessToken, openID)
	return ok
}

// storeVideos is syncVideos that also hands back the fetched videos.
func (s *LinkService) storeVideos(ctx context.Context, uid, username, accessToken, openID string) ([]models.TikTokVideo, bool) {
	log := s.logger.With(zap.String("uid", uid), zap.String("username", username))

	videos, err := s.videos.ListVideos(ctx, accessToken, openID)
	if err != nil {
		metrics.VideoSyncTotal.WithLabelValues("fetch_failed").Inc()
		log.Error("Failed to fetch TikTok videos", zap.Error(err))
		return nil, false
	}
	if len(videos) == 0 {
		metrics.VideoSyncTotal.WithLabelValues("empty").Inc()
		log.Info("No TikTok videos to store")
		return nil, true
	}

	items := make([]models.ContentItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, models.ContentItemFromVideo(v))
	}
	if err := s.store.SaveVideos(ctx, uid, username, items); err != nil {
		metrics.VideoSyncTotal.WithLabelValues("save_failed").Inc()
		log.Error("Failed to save TikTok videos", zap.Error(err))
		return nil, false
	}

	metrics.VideoSyncTotal.WithLabelValues("ok").Inc()
	log.Info("TikTok videos stored", zap.Int("count", len(items)))
	return videos, true
}

// accountTokens builds the stored token set from the raw token payload, so
// optional fields the provider left out stay absent.
func accountTokens(result *oauth.Result) (models.AccountTokens, error) {
	var raw models.TikTokTokenResponse
	if len(result.Token.Raw) > 0 {
		if err := json.Unmarshal(result.Token.Raw, &raw); err != nil {
			return models.AccountTokens{}, fmt.Errorf("decode token payload: %w", err)
		}
	}

	tokenType := raw.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return models.AccountTokens{
		AccessToken:      result.Token.AccessToken,
		RefreshToken:     result.Token.RefreshToken,
		OpenID:           result.Profile.ID,
		ExpiresIn:        raw.ExpiresIn,
		RefreshExpiresIn: raw.RefreshExpiresIn,
		Scope:            raw.Scope,
		TokenType:        tokenType,
	}, nil
}
