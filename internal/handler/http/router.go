package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Sessions  session.Store
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Orders    *OrderHandler
	Customers *CustomerHandler
	Health    HealthCheck
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Leave it off unless a proxy in front of the service sets those headers.
	TrustProxy bool
}

func NewRouter(cfg RouterConfig) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth(cfg.Health))

	router.Group(func(r chi.Router) {
		r.Use(session.Middleware(cfg.Sessions))

		cfg.Auth.RegisterRoutes(r)
		cfg.Catalog.RegisterRoutes(r)
		cfg.Cart.RegisterRoutes(r)
		cfg.Customers.RegisterRoutes(r)

		r.Group(func(staff chi.Router) {
			staff.Use(cfg.Auth.RequireAuth)

			cfg.Orders.RegisterStaffRoutes(staff)
			cfg.Catalog.RegisterStaffRoutes(staff)
			cfg.Customers.RegisterStaffRoutes(staff)
		})
	})

	return router
}

func handleHealth(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Error().Err(err).Msg("Health check failed")
				respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
