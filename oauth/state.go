package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// DefaultStateTTL bounds how long a consent redirect can take.
const DefaultStateTTL = 10 * time.Minute

// StateSigner issues and checks HMAC-signed state values of the form
// nonce.expiry.signature.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// New returns a signed random state that expires after the signer's TTL.
func (s *StateSigner) New() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	exp := s.now().Add(s.ttl).Unix()
	return s.sign(base64.RawURLEncoding.EncodeToString(b) + "." + strconv.FormatInt(exp, 10)), nil
}

// Verify reports whether raw was produced by New with the same secret and has
// not expired.
func (s *StateSigner) Verify(raw string) bool {
	i := strings.LastIndex(raw, ".")
	if i <= 0 {
		return false
	}
	payload := raw[:i]
	nonce, expText, ok := strings.Cut(payload, ".")
	if !ok || nonce == "" {
		return false
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(raw)) {
		return false
	}
	exp, err := strconv.ParseInt(expText, 10, 64)
	if err != nil {
		return false
	}
	return s.now().Unix() <= exp
}

func (s *StateSigner) sign(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return payload + "." + base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
