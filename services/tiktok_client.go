package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"tiktok-link/models"
)

// ErrTikTokAPI is returned when the open API answers with an error envelope.
var ErrTikTokAPI = errors.New("tiktok api error")

const (
	videoListFields = "cover_image_url,id,title,video_description,duration,embed_link,like_count,comment_count,share_count,view_count,create_time"
	videoListMax    = 20
)

// TikTokClient calls the TikTok content API on behalf of a linked account.
type TikTokClient struct {
	videoListURL string
	client       *http.Client
}

func NewTikTokClient(videoListURL string, client *http.Client) *TikTokClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &TikTokClient{videoListURL: videoListURL, client: client}
}

// ListVideos returns the most recent videos (at most 20) of the account
// identified by openID. Only the first page is read.
func (c *TikTokClient) ListVideos(ctx context.Context, accessToken, openID string) ([]models.TikTokVideo, error) {
	endpoint, err := url.Parse(c.videoListURL)
	if err != nil {
		return nil, fmt.Errorf("video list url: %w", err)
	}
	q := endpoint.Query()
	q.Set("fields", videoListFields)
	endpoint.RawQuery = q.Encode()

	payload, err := json.Marshal(map[string]any{
		"open_id":   openID,
		"max_count": videoListMax,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video list request: %w", err)
	}
	defer resp.Body.Close()

	var result models.TikTokVideoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse video list (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case result.Data != nil && result.Data.Videos != nil:
		return result.Data.Videos, nil
	case result.Error.Failed():
		return nil, fmt.Errorf("%w: %s: %s", ErrTikTokAPI, result.Error.Code, result.Error.Message)
	default:
		return nil, fmt.Errorf("unexpected video list response (status %d)", resp.StatusCode)
	}
}
