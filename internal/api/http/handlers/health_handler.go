package handlers

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness, readiness and connectivity probes.
type HealthHandler struct {
	serviceName string
	version     string
	apiKey      string
	deps        map[string]Pinger
}

// NewHealthHandler returns a new handler instance. apiKey guards the root probe when set.
func NewHealthHandler(serviceName, version, apiKey string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, apiKey: apiKey, deps: deps}
}

// Root answers the client connectivity probe.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	if h.apiKey != "" {
		presented := c.Get("apikey")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.apiKey)) != 1 {
			return apperrors.NewUnauthorized("invalid api key")
		}
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
