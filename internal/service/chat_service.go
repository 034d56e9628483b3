package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/assistant"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const previewLength = 120

// ReplyGenerator produces assistant replies grounded in the knowledge base.
type ReplyGenerator interface {
	Generate(ctx context.Context, message string, kb []domain.KnowledgeEntry) (assistant.Reply, error)
}

// ChatRequest is one chat invocation. UserID is empty for anonymous callers.
type ChatRequest struct {
	Message  string
	TicketID string
	UserID   string
}

// ChatService answers chat messages and records transcripts on tickets owned by the caller.
type ChatService struct {
	generator  ReplyGenerator
	knowledge  repository.KnowledgeRepository
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	Generator     ReplyGenerator
	KnowledgeRepo repository.KnowledgeRepository
	TicketRepo    repository.TicketRepository
	MessageRepo   repository.TicketMessageRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		generator:  deps.Generator,
		knowledge:  deps.KnowledgeRepo,
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Respond generates a reply for the message. Escalations come back as a Reply with
// ShouldEscalate set; only configuration problems and bad input are returned as errors.
//
// An answered exchange is appended to req.TicketID only when req.UserID is set and owns that
// ticket. Anonymous callers and foreign ticket ids still get a reply, but nothing is stored.
// Escalated exchanges are never stored.
func (s *ChatService) Respond(ctx context.Context, req ChatRequest) (assistant.Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return assistant.Reply{}, apperrors.NewValidationError("message is required", nil)
	}

	kb, err := s.knowledge.ListAll(ctx)
	if err != nil {
		s.logger.Warn("knowledge base unavailable, answering without it", zap.Error(err))
		kb = nil
	}

	reply, err := s.generator.Generate(ctx, message, kb)
	if err != nil {
		s.metrics.RecordChatOutcome("configuration_error")
		return assistant.Reply{}, err
	}

	if reply.ShouldEscalate {
		s.metrics.RecordChatOutcome(reply.Failure)
		s.publish(ctx, events.New(events.EventChatEscalated, req.TicketID, req.UserID, events.ChatEscalatedPayload{
			Failure: reply.Failure,
		}))
		return reply, nil
	}

	s.metrics.RecordChatOutcome("answered")
	if ticketID := strings.TrimSpace(req.TicketID); ticketID != "" {
		s.appendTranscript(ctx, req.UserID, ticketID, message, reply.Text)
	}
	return reply, nil
}

// appendTranscript stores the exchange on the ticket. Failures are logged and swallowed.
func (s *ChatService) appendTranscript(ctx context.Context, userID, ticketID, userMessage, aiMessage string) {
	logger := s.logger.With(zap.String("ticket_id", ticketID))
	if userID == "" {
		logger.Debug("skipping transcript for anonymous caller")
		return
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		logger.Warn("transcript ticket lookup failed", zap.Error(err))
		return
	}
	if ticket.OwnerID != userID {
		logger.Warn("transcript ticket belongs to another user", zap.String("user_id", userID))
		return
	}
	if err := s.messages.AppendPair(ctx, ticketID, userMessage, aiMessage); err != nil {
		logger.Warn("transcript append failed", zap.Error(err))
		return
	}
	s.publish(ctx, events.New(events.EventTicketMessageAdded, ticketID, userID, events.TicketMessageAddedPayload{
		BodyPreview: preview(userMessage),
	}))
}

func (s *ChatService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
