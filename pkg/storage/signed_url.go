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
	// ErrTokenInvalid covers malformed or tampered tokens.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the verified content of a download token.
type Grant struct {
	ArtifactID string
	Path       string
	ExpiresAt  time.Time
}

// SignedURLSigner issues HMAC-signed download tokens for stored artifacts.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration { return s.ttl }

// Sign returns a token of the form id.expiry.path.signature.
func (s *SignedURLSigner) Sign(artifactID, relPath string) (string, Grant, error) {
	if artifactID == "" || relPath == "" {
		return "", Grant{}, errors.New("artifact id and path required")
	}
	if strings.Contains(artifactID, ".") {
		return "", Grant{}, errors.New("artifact id must not contain dots")
	}
	if len(s.secret) == 0 {
		return "", Grant{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{artifactID, ts, encodedPath, s.signature(artifactID, ts, encodedPath)}, ".")
	return token, Grant{ArtifactID: artifactID, Path: relPath, ExpiresAt: expiresAt}, nil
}

// Verify checks the token signature and expiry.
func (s *SignedURLSigner) Verify(token string) (Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Grant{}, ErrTokenInvalid
	}
	artifactID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.signature(artifactID, ts, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Grant{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: bad expiry", ErrTokenInvalid)
	}
	grant := Grant{ArtifactID: artifactID, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) signature(artifactID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(artifactID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
