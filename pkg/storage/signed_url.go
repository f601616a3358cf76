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

// DownloadClaims is the payload carried by a signed download token.
type DownloadClaims struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// DownloadSigner issues and verifies HMAC-signed, expiring download tokens.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner constructs a signer. A non-positive ttl defaults to one day.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token of the form exportID.expiry.path.signature.
func (s *DownloadSigner) Sign(exportID, path string) (string, time.Time, error) {
	if exportID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("export id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	signature := s.mac(exportID, expiry, encodedPath)
	return strings.Join([]string{exportID, expiry, encodedPath, signature}, "."), expiresAt, nil
}

// Verify checks the signature and expiry of token.
func (s *DownloadSigner) Verify(token string) (*DownloadClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrInvalidToken
	}
	exportID, expiry, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(s.mac(exportID, expiry, encodedPath)), []byte(signature)) {
		return nil, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	path, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims := &DownloadClaims{ExportID: exportID, Path: string(path), ExpiresAt: time.Unix(unix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *DownloadSigner) mac(exportID, expiry, encodedPath string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(exportID + "|" + expiry + "|" + encodedPath))
	return hex.EncodeToString(h.Sum(nil))
}
