package models

import "time"

// PlatformTikTok is the platform document id under SocialMediaPlatforms.
const PlatformTikTok = "TikTok"

// AccountTokens is the token set stored on a linked account. Nil optional
// fields are left out of the stored document.
type AccountTokens struct {
	AccessToken      string
	RefreshToken     string
	OpenID           string
	ExpiresIn        *int64
	RefreshExpiresIn *int64
	Scope            *string
	TokenType        string
}

// Fields returns the document form of the token set with empty values removed.
func (t AccountTokens) Fields() map[string]any {
	fields := map[string]any{}
	setString := func(key, v string) {
		if v != "" {
			fields[key] = v
		}
	}
	setString("access_token", t.AccessToken)
	setString("refresh_token", t.RefreshToken)
	setString("open_id", t.OpenID)
	setString("token_type", t.TokenType)
	if t.ExpiresIn != nil {
		fields["expires_in"] = *t.ExpiresIn
	}
	if t.RefreshExpiresIn != nil {
		fields["refresh_expires_in"] = *t.RefreshExpiresIn
	}
	if t.Scope != nil {
		fields["scope"] = *t.Scope
	}
	return fields
}

// LinkedAccount is stored at users/{uid}/SocialMediaPlatforms/TikTok/Accounts/{username}.
type LinkedAccount struct {
	Tokens       AccountTokens
	ProfileImage string
	Username     string
	DisplayName  string
}

// Fields returns the merge payload for the account document, without the
// update timestamp which each store sets itself.
func (a LinkedAccount) Fields() map[string]any {
	fields := map[string]any{
		"tokens":   a.Tokens.Fields(),
		"username": a.Username,
	}
	if a.ProfileImage != "" {
		fields["profileImage"] = a.ProfileImage
	}
	if a.DisplayName != "" {
		fields["displayName"] = a.DisplayName
	}
	return fields
}

// PlatformSummary is stored at users/{uid}/SocialMediaPlatforms/TikTok.
type PlatformSummary struct {
	AccountCount int
	UpdatedAt    time.Time
}

// ContentItem is one video under Accounts/{username}/Videos/{id}.
type ContentItem struct {
	ID           string
	Title        string
	Description  string
	CreateTime   int64
	ShareURL     string
	ThumbnailURL string
	IsUp         bool
}

// Fields returns the document form of the item. is_tracked is not part of it:
// stores only write it when the document is created.
func (c ContentItem) Fields() map[string]any {
	return map[string]any{
		"title":         c.Title,
		"description":   c.Description,
		"create_time":   c.CreateTime,
		"share_url":     c.ShareURL,
		"thumbnail_url": c.ThumbnailURL,
		"is_up":         c.IsUp,
	}
}

// ContentItemFromVideo maps a listed video to its stored form.
func ContentItemFromVideo(v TikTokVideo) ContentItem {
	return ContentItem{
		ID:           v.ID,
		Title:        v.Title,
		Description:  v.VideoDescription,
		CreateTime:   v.CreateTime,
		ShareURL:     v.EmbedLink,
		ThumbnailURL: v.CoverImageURL,
		IsUp:         true,
	}
}

// AccountRef locates a linked account and carries what a resync needs.
type AccountRef struct {
	UserID      string
	Username    string
	OpenID      string
	AccessToken string
}

// MetricsSnapshot is one reading of a video's counters, stored under
// Videos/{id}/Metrics/{SnapshotID}. NewViewCount is the view growth since the
// previous reading and is filled in by the store.
type MetricsSnapshot struct {
	VideoID      string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	NewViewCount int64
	Timestamp    time.Time
}

// MetricsFromVideo takes a reading of v at the given time.
func MetricsFromVideo(v TikTokVideo, at time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		VideoID:      v.ID,
		ViewCount:    v.ViewCount,
		LikeCount:    v.LikeCount,
		CommentCount: v.CommentCount,
		ShareCount:   v.ShareCount,
		Timestamp:    at,
	}
}

// After sets NewViewCount against the view count of an earlier reading. The
// delta never goes below zero.
func (m MetricsSnapshot) After(previousViews int64) MetricsSnapshot {
	m.NewViewCount = m.ViewCount - previousViews
	if m.NewViewCount < 0 {
		m.NewViewCount = 0
	}
	return m
}

// ID is the document id of the snapshot, the reading minute in UTC.
func (m MetricsSnapshot) ID() string {
	return m.Timestamp.UTC().Format("20060102-1504")
}

func (m MetricsSnapshot) Fields() map[string]any {
	return map[string]any{
		"view_count":     m.ViewCount,
		"like_count":     m.LikeCount,
		"comment_count":  m.CommentCount,
		"share_count":    m.ShareCount,
		"new_view_count": m.NewViewCount,
		"timestamp":      m.Timestamp,
	}
}
