package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-user-auth/internal/api/auth"
)

// Config contains the dependencies needed for router setup. Server-wide
// middleware (request ID, logger, recoverer) is applied in main.go before
// this router is mounted.
type Config struct {
	AuthHandler            *auth.AuthHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter wires the application routes.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
			r.Post("/auth/reset-password", cfg.AuthHandler.ResetPassword)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Get("/auth/me", cfg.AuthHandler.Me)
		})
	})

	return r
}
