package middleware

import (
	"net/http"

	"github.com/angelmondragon/homestock-backend/api/responses"
	"github.com/angelmondragon/homestock-backend/internal/gate"
	"github.com/angelmondragon/homestock-backend/pkg/auth"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
)

// Auth admits a request only when the gate resolves a live identity from its
// Authorization header. Rejections stop the chain before any handler runs.
func Auth(g gate.Gate, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
