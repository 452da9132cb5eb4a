package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/persistence"
)

// HealthHandler answers liveness and readiness probes for the authority
// service.
type HealthHandler struct {
	serviceName string
	version     string
	startedAt   time.Time
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		postgres:    postgres,
		redis:       redis,
	}
}

// Live reports process liveness only; it must not touch dependencies.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}})
}

// Ready reports readiness by pinging Postgres and Redis. Postgres is
// load-bearing; Redis degrades the cache and denylist but requests still
// serve, so its failure is reported without flipping readiness.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{"postgres": "ok", "redis": "ok"}
	ready := true

	if err := h.postgres.Ping(ctx); err != nil {
		deps["postgres"] = err.Error()
		ready = false
	}
	if err := h.redis.Ping(ctx); err != nil {
		deps["redis"] = err.Error()
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":       "ready",
		"dependencies": deps,
	}})
}
