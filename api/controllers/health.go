package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/homestock-backend/api/responses"
	"github.com/angelmondragon/homestock-backend/pkg/config"
	"github.com/angelmondragon/homestock-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HomeStock-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency. Any failure answers 503 with the
// per-dependency status in the error details.
func HealthReady(cfg *config.Config, checks map[string]db.Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HomeStock-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(names))
		var firstErr error
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				status[name] = "down"
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			status[name] = "up"
		}

		if firstErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, firstErr, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
