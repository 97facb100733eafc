package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tiktok-link/config"
	"tiktok-link/models"
	"tiktok-link/oauth"
)

const userInfoFields = "open_id,union_id,avatar_url,display_name,username"

// TikTokScopes are requested on every link.
var TikTokScopes = []string{"user.info.basic", "user.info.profile", "user.info.stats", "video.list"}

// NewTikTokHooks returns the strategy hooks for TikTok Login Kit v2, which
// names the client "client_key" and takes a comma-separated scope.
func NewTikTokHooks(cfg config.TikTokProvider, client *http.Client) oauth.Hooks {
	if client == nil {
		client = http.DefaultClient
	}
	t := &tiktokHooks{cfg: cfg, client: client}
	return oauth.Hooks{
		AuthorizationParams: t.authorizationParams,
		ExchangeCode:        t.exchangeCode,
		UserProfile:         t.userProfile,
	}
}

type tiktokHooks struct {
	cfg    config.TikTokProvider
	client *http.Client
}

func (t *tiktokHooks) authorizationParams(base url.Values) url.Values {
	extra := map[string]string{"client_key": t.cfg.ClientKey}
	if scope := base.Get("scope"); scope != "" {
		extra["scope"] = strings.Join(strings.Fields(scope), ",")
	}
	for k, v := range t.cfg.AuthorizationParams {
		extra[k] = v
	}
	return oauth.OverrideParams(extra)(base)
}

func (t *tiktokHooks) exchangeCode(ctx context.Context, code string, params url.Values) (*oauth.Token, error) {
	// extra params go in first so they cannot replace the configured client
	form := url.Values{}
	for k := range params {
		form.Set(k, params.Get(k))
	}
	form.Set("code", code)
	form.Set("client_id", t.cfg.ClientKey)
	form.Set("client_secret", t.cfg.ClientSecret)
	form.Set("redirect_uri", t.cfg.RedirectURI)
	form.Set("client_key", t.cfg.ClientKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	var tokenResp models.TikTokTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse token response (status %d): %w", resp.StatusCode, err)
	}
	if tokenResp.Error != "" {
		return nil, fmt.Errorf("token endpoint: %s: %s", tokenResp.Error, tokenResp.ErrorDescription)
	}

	return &oauth.Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		Raw:          json.RawMessage(body),
	}, nil
}

func (t *tiktokHooks) userProfile(ctx context.Context, token *oauth.Token) (*oauth.Profile, error) {
	endpoint, err := url.Parse(t.cfg.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("user info url: %w", err)
	}
	q := endpoint.Query()
	q.Set("fields", userInfoFields)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	var info models.TikTokUserInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse user info (status %d): %w", resp.StatusCode, err)
	}
	if info.Error.Failed() {
		return nil, fmt.Errorf("%w: %s: %s", ErrTikTokAPI, info.Error.Code, info.Error.Message)
	}

	user := info.Data.User
	if user == nil || user.Username == "" {
		return nil, fmt.Errorf("%w: profile has no username", oauth.ErrAuthenticationFailed)
	}
	return &oauth.Profile{
		ID:           user.OpenID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		ProfileImage: user.AvatarURL,
	}, nil
}
