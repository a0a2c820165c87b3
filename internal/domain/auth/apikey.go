package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants the given scope. A key with the
// wildcard scope "*" grants everything.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// HashKey computes the stored form of a raw API key: hex-encoded
// HMAC-SHA256 keyed with the server pepper. Only hashes are persisted, so
// a leaked database cannot be replayed against the API.
func HashKey(pepper, rawKey string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	// FindByHash returns the active key matching hash, or ErrKeyNotFound.
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
