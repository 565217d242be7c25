// Package auth verifies and issues the bearer credentials that identify API callers.
package auth

import (
	"context"
	"time"
)

// IdentityKey is the gin context key under which the Auth Gate stores the caller's Identity
const IdentityKey = "identity"

// Identity is the verified caller of a request. It is attached by the auth middleware
// only and never mutated afterwards.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// FromContext returns the identity attached to ctx, if any
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}
