package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/homestock-backend/api/controllers"
	"github.com/angelmondragon/homestock-backend/api/middleware"
	"github.com/angelmondragon/homestock-backend/api/responses"
	"github.com/angelmondragon/homestock-backend/internal/auth"
	"github.com/angelmondragon/homestock-backend/internal/gate"
	"github.com/angelmondragon/homestock-backend/internal/inventory"
	"github.com/angelmondragon/homestock-backend/pkg/config"
	"github.com/angelmondragon/homestock-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
	"github.com/angelmondragon/homestock-backend/pkg/metrics"
)

// Deps carries everything the router mounts. MetricsHandler is optional.
type Deps struct {
	Readiness      map[string]db.Pinger
	Gate           gate.Gate
	Auth           auth.Service
	Inventory      inventory.Service
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Gate, logg))
			r.Get("/profile", controllers.AuthProfile(deps.Auth, logg))
			r.Put("/profile", controllers.AuthUpdateProfile(deps.Auth, logg))
			r.Delete("/account", controllers.AuthDeleteAccount(deps.Auth, logg))
			r.Put("/change-password", controllers.AuthChangePassword(deps.Auth, logg))
			r.Get("/verify-token", controllers.AuthVerifyToken(deps.Auth, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Gate, logg))
		r.Get("/api/all", controllers.InventoryList(deps.Inventory, logg))
		r.Get("/api/room/{roomName}", controllers.InventoryListRoom(deps.Inventory, logg))
		r.Get("/api/item/{name}", controllers.InventoryGet(deps.Inventory, logg))
		r.Post("/api/new", controllers.InventoryCreate(deps.Inventory, logg))
		r.Put("/api/room/{roomName}/item/{name}", controllers.InventoryUpdate(deps.Inventory, logg))
		r.Delete("/api/room/{roomName}/item/{name}", controllers.InventoryDelete(deps.Inventory, logg))
	})

	return r
}
