package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health. A nil pinger reports the in-memory store.
func Health(store Pinger, storeName string) fiber.Handler {
	return func(c fiber.Ctx) error {
		status := fiber.Map{
			"status": "ok",
			"store":  storeName,
			"time":   now().UTC().Format(time.RFC3339),
		}
		if store != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["error"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	}
}
