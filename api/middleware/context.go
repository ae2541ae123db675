package middleware

import (
	"context"

	"github.com/angelmondragon/homestock-backend/pkg/auth"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// UserIDFromContext returns the authenticated owner id, or the zero id when
// the request did not pass through Auth.
func UserIDFromContext(ctx context.Context) ids.ID {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.UserID
}

func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	return auth.IdentityFromContext(ctx)
}
