package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/api/http/handlers"
	"github.com/evolution-fly/flight-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Destinations   *handlers.DestinationsHandler
	FlightRequests *handlers.FlightRequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role guards here are defense-in-depth:
// the services re-check permissions on every mutating path.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Get("/profile", cfg.Auth.Profile)
	authProtected.Put("/profile", cfg.Auth.UpdateProfile)

	destinations := app.Group("/destinations", cfg.AuthMiddleware.Handle)
	destinations.Get("/", cfg.Destinations.List)
	destinations.Get("/active", cfg.Destinations.ListActive)
	destinations.Post("/", auth.RequireAdmin(), cfg.Destinations.Create)
	destinations.Put("/:id", auth.RequireAdmin(), cfg.Destinations.Update)
	destinations.Delete("/:id", auth.RequireAdmin(), cfg.Destinations.Delete)

	requests := app.Group("/flight-requests", cfg.AuthMiddleware.Handle)
	requests.Post("/", auth.RequireClient(), cfg.FlightRequests.Create)
	requests.Get("/", cfg.FlightRequests.List)
	requests.Get("/pending", auth.RequireOperator(), cfg.FlightRequests.ListPending)
	requests.Get("/:id", cfg.FlightRequests.Get)
	requests.Post("/:id/reserve", auth.RequireOperator(), cfg.FlightRequests.Reserve)
	requests.Patch("/:id", auth.RequireOperator(), cfg.FlightRequests.Update)
	requests.Delete("/:id", cfg.FlightRequests.Delete)
}
