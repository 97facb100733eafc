package models

// TikTokTokenResponse is the body of POST /v2/oauth/token/. Optional fields
// are pointers so an absent value can be told apart from a zero one.
type TikTokTokenResponse struct {
	AccessToken      string  `json:"access_token"`
	RefreshToken     string  `json:"refresh_token"`
	OpenID           string  `json:"open_id"`
	ExpiresIn        *int64  `json:"expires_in,omitempty"`
	RefreshExpiresIn *int64  `json:"refresh_expires_in,omitempty"`
	Scope            *string `json:"scope,omitempty"`
	TokenType        string  `json:"token_type,omitempty"`

	// error fields, only set on failure
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	LogID            string `json:"log_id,omitempty"`
}

// TikTokAPIError is the error envelope returned by the open API.
type TikTokAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// Failed reports whether the envelope describes an actual error. TikTok sends
// code "ok" on success.
func (e *TikTokAPIError) Failed() bool {
	return e != nil && e.Code != "" && e.Code != "ok"
}

type TikTokUser struct {
	OpenID      string `json:"open_id"`
	UnionID     string `json:"union_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Username    string `json:"username"`
}

// TikTokUserInfoResponse is the body of GET /v2/user/info/.
type TikTokUserInfoResponse struct {
	Data struct {
		User *TikTokUser `json:"user"`
	} `json:"data"`
	Error *TikTokAPIError `json:"error"`
}

type TikTokVideo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	VideoDescription string `json:"video_description"`
	Duration         int64  `json:"duration"`
	CreateTime       int64  `json:"create_time"`
	CoverImageURL    string `json:"cover_image_url"`
	EmbedLink        string `json:"embed_link"`
	ViewCount        int64  `json:"view_count"`
	LikeCount        int64  `json:"like_count"`
	CommentCount     int64  `json:"comment_count"`
	ShareCount       int64  `json:"share_count"`
}

// TikTokVideoListResponse is the body of POST /v2/video/list/.
type TikTokVideoListResponse struct {
	Data *struct {
		Videos  []TikTokVideo `json:"videos"`
		Cursor  int64         `json:"cursor"`
		HasMore bool          `json:"has_more"`
	} `json:"data"`
	Error *TikTokAPIError `json:"error"`
}
