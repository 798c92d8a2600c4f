package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/auth"
	"github.com/xenking/dineease-pos/pkg/httpmiddleware"
)

// HashAPIKey computes the HMAC-SHA256 digest of a raw API key under the
// server pepper. Only this digest is ever stored or compared, so a database
// leak does not expose usable keys.
func HashAPIKey(pepper, rawKey string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey returns a middleware that authenticates requests with the
// X-API-Key header against the key store and requires the given scope.
func RequireAPIKey(keys auth.Repository, pepper, scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			info, err := keys.FindByHash(r.Context(), HashAPIKey(pepper, rawKey))
			if err != nil {
				zctx.From(r.Context()).Warn("api key rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if !info.HasScope(scope) {
				writeError(w, http.StatusForbidden, "insufficient scope")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
