package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/staffdesk/employee-api/internal/auth"
	"github.com/staffdesk/employee-api/internal/config"
	"github.com/staffdesk/employee-api/internal/httputil"
	"github.com/staffdesk/employee-api/internal/logging"
	"github.com/staffdesk/employee-api/internal/user"
)

// Pinger checks connectivity to the credential store
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, authHandler *auth.Handler, authMiddleware *auth.Middleware, userHandler *user.Handler, store Pinger, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/users", userHandler.List)
		r.Get("/test", handleDBTest(store))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", authHandler.Me)
		})
	})

	return r
}

// handleHealth is a simple liveness check
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

// handleDBTest probes the credential store connection
func handleDBTest(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context())

		if err := store.Ping(r.Context()); err != nil {
			logger.Error("database connection test failed", "error", err.Error())
			httputil.RespondJSON(w, map[string]string{"message": "Internal server error."}, http.StatusInternalServerError)
			return
		}

		httputil.RespondJSON(w, map[string]string{"message": "Database connection test successful."}, http.StatusOK)
	}
}
