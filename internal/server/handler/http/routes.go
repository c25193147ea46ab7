package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// authentication API. It applies JSON content-type enforcement and request
// logging, and mounts the endpoints under /api.
//
// Routes:
//
//	POST /api/register                  → authHandler.Register
//	POST /api/login                     → authHandler.Login
//	POST /api/login/face                → authHandler.LoginFace
//	POST /api/password                  → authHandler.ChangePassword
//	GET  /api/users/{username}/methods  → authHandler.Methods
func NewRouter(authHandler *AuthHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/login/face", authHandler.LoginFace)
		r.Post("/password", authHandler.ChangePassword)
		r.Get("/users/{username}/methods", authHandler.Methods)
	})

	return r
}
