package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/ccube-shop/storefront/internal/domain/auth"
)

type deviceIDKey struct{}

// deviceIDFromContext returns the validated device ID stored by
// requireDeviceID, or "".
func deviceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// requireDeviceID validates the X-Device-ID header that scopes carts and
// wishlists to a client installation. The ID is opaque to the server; only
// its length and character set are checked.
func (h *Handler) requireDeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Device-ID")
		if !isValidDeviceID(id) {
			writeError(w, r, http.StatusBadRequest, "missing or invalid X-Device-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), deviceIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isValidDeviceID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}

// requireAPIKey authenticates write requests via the X-API-Key header. The
// key is hashed with the server pepper and looked up; a constant-time
// comparison against the stored hash guards the lookup result.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "missing X-API-Key header")
			return
		}

		hash := auth.HashKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid API key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
