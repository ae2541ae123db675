package auth

import (
	"context"

	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// Identity is the caller resolved by the auth gate. Handlers must take the
// owner for every data access from here, never from the request body or path.
type Identity struct {
	UserID ids.ID
	Email  string
}

type identityKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the auth gate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID.IsZero() {
		return Identity{}, false
	}
	return id, true
}
