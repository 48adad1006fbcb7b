package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// SignedToken is the payload carried by a download token.
type SignedToken struct {
	ResourceID string
	Name       string
	ExpiresAt  time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting temporary access to the stored file name of resourceID.
func (s *SignedURLSigner) Sign(resourceID, name string) (string, time.Time, error) {
	if resourceID == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("resource id and name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{
		resourceID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(name)),
	}, ".")
	return payload + "." + s.signature(payload), expiresAt, nil
}

// Verify checks the signature and expiry of token.
func (s *SignedURLSigner) Verify(token string) (*SignedToken, error) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 {
		return nil, ErrInvalidToken
	}
	payload, signature := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.signature(payload)), []byte(signature)) {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	name, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	parsed := &SignedToken{ResourceID: parts[0], Name: string(name), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(parsed.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return parsed, nil
}

func (s *SignedURLSigner) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
