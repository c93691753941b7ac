package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	environment string
	checks      map[string]Pinger
}

func NewHealthHandler(environment string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{environment: environment, checks: checks}
}

// HealthCheck always answers 200; dependency state is informational.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	services := fiber.Map{}
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			services[name] = "unavailable"
			continue
		}
		services[name] = "connected"
	}

	return c.JSON(fiber.Map{
		"status":      "OK",
		"message":     "Wyse API is running",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
		"services":    services,
	})
}
