// Package oauth implements the authorization-code flow once and lets each
// provider plug in the parts it does differently through Hooks.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrAuthenticationFailed means the callback did not yield an identity:
	// the user denied consent, the code was missing, or the state did not verify.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAccessDenied is returned when the user declined the consent screen.
	ErrAccessDenied = fmt.Errorf("%w: access denied", ErrAuthenticationFailed)

	// ErrInvalidState is returned when the callback state is missing or forged.
	ErrInvalidState = fmt.Errorf("%w: invalid state", ErrAuthenticationFailed)
)

// Token is the result of a code exchange. Raw keeps the provider payload as
// received so provider-specific fields stay available to callers.
type Token struct {
	AccessToken  string
	RefreshToken string
	Raw          json.RawMessage
}

// Profile is the linked identity reported by the provider.
type Profile struct {
	ID           string
	Username     string
	DisplayName  string
	ProfileImage string
}

// Result is what a successful callback produces.
type Result struct {
	Token   *Token
	Profile *Profile
}

// Hooks customize the flow for one provider.
type Hooks struct {
	// AuthorizationParams receives the parameters the strategy computed for the
	// authorization redirect and returns the set to send. Nil keeps them as is.
	AuthorizationParams func(base url.Values) url.Values

	// ExchangeCode trades an authorization code for tokens. params carries the
	// extra body parameters the strategy wants sent (grant_type). Nil uses
	// oauth2.Config.Exchange.
	ExchangeCode func(ctx context.Context, code string, params url.Values) (*Token, error)

	// UserProfile loads the identity that owns token. Required.
	UserProfile func(ctx context.Context, token *Token) (*Profile, error)
}

// Strategy runs the authorization-code flow against one provider.
type Strategy struct {
	config *oauth2.Config
	hooks  Hooks
	state  *StateSigner
}

// Option adjusts a Strategy.
type Option func(*options)

type options struct {
	stateTTL time.Duration
}

// WithStateTTL sets how long an issued state stays valid.
func WithStateTTL(ttl time.Duration) Option {
	return func(o *options) { o.stateTTL = ttl }
}

// New validates hooks and returns a Strategy. stateSecret signs the state
// parameter so a callback can be checked without server-side storage.
func New(config *oauth2.Config, hooks Hooks, stateSecret string, opts ...Option) (*Strategy, error) {
	if config == nil {
		return nil, errors.New("oauth: nil config")
	}
	if hooks.UserProfile == nil {
		return nil, errors.New("oauth: UserProfile hook is required")
	}
	if stateSecret == "" {
		return nil, errors.New("oauth: empty state secret")
	}
	o := options{stateTTL: DefaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Strategy{config: config, hooks: hooks, state: NewStateSigner(stateSecret, o.stateTTL)}
	if s.hooks.AuthorizationParams == nil {
		s.hooks.AuthorizationParams = func(base url.Values) url.Values { return base }
	}
	if s.hooks.ExchangeCode == nil {
		s.hooks.ExchangeCode = s.standardExchange
	}
	return s, nil
}

// OverrideParams returns an AuthorizationParams hook that sets extra on top of
// the base parameters. Values in extra win on collision.
func OverrideParams(extra map[string]string) func(url.Values) url.Values {
	return func(base url.Values) url.Values {
		merged := url.Values{}
		for k, v := range base {
			merged[k] = append([]string(nil), v...)
		}
		for k, v := range extra {
			merged.Set(k, v)
		}
		return merged
	}
}

// AuthorizeURL returns the provider consent URL for scopes and the freshly
// signed state it carries. Callers bind the state to the browser session so
// the callback can be matched to the flow that started it.
func (s *Strategy) AuthorizeURL(scopes []string) (authURL, state string, err error) {
	state, err = s.state.New()
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}

	base := url.Values{}
	if len(scopes) > 0 {
		base.Set("scope", strings.Join(scopes, " "))
	}
	params := s.hooks.AuthorizationParams(base)

	opts := make([]oauth2.AuthCodeOption, 0, len(params))
	for k := range params {
		opts = append(opts, oauth2.SetAuthURLParam(k, params.Get(k)))
	}
	return s.config.AuthCodeURL(state, opts...), state, nil
}

// Authenticate validates the callback query, exchanges the code and loads the
// profile. Errors wrapping ErrAuthenticationFailed mean no identity was
// obtained; any other error is a provider or transport failure. Of the
// provider error codes only access_denied counts as the former.
func (s *Strategy) Authenticate(ctx context.Context, query url.Values) (*Result, error) {
	if e := query.Get("error"); e != "" {
		desc := query.Get("error_description")
		if e == "access_denied" {
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, desc)
		}
		return nil, fmt.Errorf("provider returned %s: %s", e, desc)
	}
	if !s.state.Verify(query.Get("state")) {
		return nil, ErrInvalidState
	}
	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrAuthenticationFailed)
	}

	token, err := s.hooks.ExchangeCode(ctx, code, url.Values{"grant_type": {"authorization_code"}})
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, errors.New("exchange code: no access token in response")
	}

	profile, err := s.hooks.UserProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: empty profile", ErrAuthenticationFailed)
	}
	return &Result{Token: token, Profile: profile}, nil
}

func (s *Strategy) standardExchange(ctx context.Context, code string, params url.Values) (*Token, error) {
	opts := make([]oauth2.AuthCodeOption, 0, len(params))
	for k := range params {
		if k == "grant_type" {
			continue
		}
		opts = append(opts, oauth2.SetAuthURLParam(k, params.Get(k)))
	}
	tok, err := s.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{
		"access_token":  tok.AccessToken,
		"refresh_token": tok.RefreshToken,
		"token_type":    tok.TokenType,
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Raw: body}, nil
}
