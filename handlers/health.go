package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/utils/cache"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// Health statuses reported by /health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler reports service information and dependency health
type HealthHandler struct {
	store   database.Storage
	cache   cache.Store // nil while the in-memory fallback stands in for Redis
	name    string
	version string
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage, cache cache.Store, name, version string) *HealthHandler {
	return &HealthHandler{store: store, cache: cache, name: name, version: version, now: time.Now}
}

// HealthCheck is the body of GET /health
type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  bool      `json:"database"`
	Redis     bool      `json:"redis"`
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    h.name,
		"version": h.version,
		"status":  "running",
	})
}

// Health handles GET /health. A database outage is unhealthy, a Redis outage only degraded.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	check := HealthCheck{
		Status:    StatusHealthy,
		Timestamp: h.now().UTC(),
		Version:   h.version,
	}
	check.Database = h.store.HealthCheck(ctx) == nil
	check.Redis = h.cache != nil && h.cache.Ping(ctx) == nil

	switch {
	case !check.Database:
		check.Status = StatusUnhealthy
	case !check.Redis:
		check.Status = StatusDegraded
	}

	status := fiber.StatusOK
	if check.Status == StatusUnhealthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(check)
}

// HandleCheckHealth handles GET /ping. It answers 503 when the database does not respond.
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()

	if err := store.HealthCheck(ctx); err != nil {
		return response.ServiceUnavailable(c, "Database is not reachable")
	}
	return c.JSON(fiber.Map{"pong": true, "timestamp": time.Now().UTC()})
}
