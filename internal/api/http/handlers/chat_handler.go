package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/assistant"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	rateLimitedMessage = "Rate limit exceeded. Please try again in a moment."
	quotaMessage       = "AI service credits depleted. Creating a ticket instead."
	unavailableMessage = "AI service is unavailable"
	friendlyFallback   = "I'm having trouble right now. Let me create a ticket for you so our team can help!"
)

// Responder answers chat messages.
type Responder interface {
	Respond(ctx context.Context, req service.ChatRequest) (assistant.Reply, error)
}

// ChatHandler serves the chat invocation endpoint. Its body shape is fixed by the chat
// clients, so it writes errors itself instead of using the error envelope.
type ChatHandler struct {
	responder Responder
	logger    *zap.Logger
}

// NewChatHandler constructs handler.
func NewChatHandler(responder Responder, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{responder: responder, logger: logger}
}

// Chat handles POST /functions/chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(dto.ChatResponse{Error: "invalid payload"})
	}

	chatReq := service.ChatRequest{Message: req.Message, TicketID: req.TicketID}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		chatReq.UserID = principal.User.ID
	}

	reply, err := h.responder.Respond(c.UserContext(), chatReq)
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		if domainErr.Code == apperrors.CodeValidation {
			return c.Status(http.StatusBadRequest).JSON(dto.ChatResponse{Error: domainErr.Message})
		}
		h.logger.Error("chat invocation failed", zap.String("code", domainErr.Code), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(dto.ChatResponse{
			Error:              unavailableMessage,
			Response:           friendlyFallback,
			ShouldCreateTicket: true,
		})
	}

	if !reply.ShouldEscalate {
		return c.JSON(dto.ChatResponse{Response: reply.Text})
	}

	switch reply.Failure {
	case assistant.FailureRateLimited:
		return c.Status(http.StatusTooManyRequests).JSON(dto.ChatResponse{Error: rateLimitedMessage, ShouldCreateTicket: true})
	case assistant.FailureQuotaExhausted:
		return c.Status(http.StatusPaymentRequired).JSON(dto.ChatResponse{Error: quotaMessage, ShouldCreateTicket: true})
	default:
		return c.Status(http.StatusInternalServerError).JSON(dto.ChatResponse{
			Error:              unavailableMessage,
			Response:           friendlyFallback,
			ShouldCreateTicket: true,
		})
	}
}
