package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Chat           *handlers.ChatHandler
	Knowledge      *handlers.KnowledgeHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)
	app.Get("/knowledge", cfg.Knowledge.List)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Get("/session", cfg.AuthMiddleware.Handle, cfg.Users.Session)

	functions := app.Group("/functions", chatCORS())
	functions.Post("/chat", cfg.AuthMiddleware.Optional, cfg.Chat.Chat)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/latest", cfg.Tickets.LatestTicket)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.UserRoleAdmin))
	admin.Get("/tickets", cfg.Tickets.SearchTickets)
	admin.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
}
