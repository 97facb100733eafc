// Package session binds a browser to the user that started a link flow. The
// binding lives in an HS256-signed cookie, so any instance can read it back
// on the callback.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("no session")

type claims struct {
	UID   string `json:"uid"`
	State string `json:"state,omitempty"`
	jwt.RegisteredClaims
}

// Binding is what a session remembers between the redirect and the callback.
type Binding struct {
	UID   string
	State string
}

// Manager issues and reads session cookies.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// Options configures a Manager.
type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func NewManager(opts Options) *Manager {
	return &Manager{
		secret:     []byte(opts.Secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        time.Now,
	}
}

// Save stores uid and the OAuth state issued for it in a new session cookie.
func (m *Manager) Save(w http.ResponseWriter, uid, state string) error {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UID:   uid,
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// UserID returns the uid bound to the request's session.
func (m *Manager) UserID(r *http.Request) (string, error) {
	b, err := m.Load(r)
	if err != nil {
		return "", err
	}
	return b.UID, nil
}

// Load returns the binding stored in the request's session.
func (m *Manager) Load(r *http.Request) (Binding, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return Binding{}, ErrNoSession
	}

	var c claims
	_, err = jwt.ParseWithClaims(cookie.Value, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if c.UID == "" {
		return Binding{}, ErrNoSession
	}
	return Binding{UID: c.UID, State: c.State}, nil
}

// Matches reports whether state is the one issued with this binding.
func (b Binding) Matches(state string) bool {
	return b.State != "" && subtle.ConstantTimeCompare([]byte(b.State), []byte(state)) == 1
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
