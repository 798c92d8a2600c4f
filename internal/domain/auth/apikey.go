// Package auth defines the trusted-caller contract for admin operations.
// The billing core never authenticates by itself; privileged routes are
// gated by API keys validated at the HTTP boundary.
package auth

import "context"

// ScopeAdmin grants access to menu management, analytics, and payment
// confirmation endpoints.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key carries the given scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
