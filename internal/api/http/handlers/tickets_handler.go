package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketWorkflow is the ticket service as seen by HTTP handlers.
type TicketWorkflow interface {
	CreateTicket(ctx context.Context, ownerID string, input service.TicketCreateInput) (*domain.Ticket, error)
	ListTickets(ctx context.Context, ownerID string, limit int) ([]domain.Ticket, error)
	LatestTicket(ctx context.Context, ownerID string) (*domain.Ticket, error)
	ListMessages(ctx context.Context, ownerID, ticketID string) ([]domain.TicketMessage, error)
	SearchTickets(ctx context.Context, filter service.AdminTicketFilter) ([]repository.TicketRow, error)
	UpdateStatus(ctx context.Context, actorID, ticketID string, status domain.TicketStatus) (*domain.Ticket, error)
}

// TicketsHandler manages ticket endpoints for requesters and administrators.
type TicketsHandler struct {
	service TicketWorkflow
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketWorkflow) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), user.ID, service.TicketCreateInput{
		TicketFields: domain.TicketFields{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Priority:    req.Priority,
		},
		TicketNumber: req.TicketNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), user.ID, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// LatestTicket GET /tickets/latest. data is null when the caller has no tickets.
func (h *TicketsHandler) LatestTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.LatestTicket(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListMessages GET /tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.ListMessages(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketMessageResponses(msgs)})
}

// SearchTickets GET /admin/tickets.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	rows, err := h.service.SearchTickets(c.UserContext(), service.AdminTicketFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminTicketResponses(rows)})
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), user.ID, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}
