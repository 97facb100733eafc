package config

import (
	"golang.org/x/oauth2"
)

// TikTokOAuth2Config builds the oauth2 client settings for TikTok.
//
// TikTok identifies the app by client_key rather than client_id; the strategy
// hooks add that parameter, so ClientID carries the same key here.
func (c *AppConfig) TikTokOAuth2Config() *oauth2.Config {
	tt := c.OAuth.TikTok
	return &oauth2.Config{
		ClientID:     tt.ClientKey,
		ClientSecret: tt.ClientSecret,
		RedirectURL:  tt.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   tt.AuthURL,
			TokenURL:  tt.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
