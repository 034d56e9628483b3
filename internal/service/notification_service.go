package service

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationService turns domain events into operator notifications.
type NotificationService struct {
	logger    *zap.Logger
	cfg       config.NotificationConfig
	delivered atomic.Int64
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, cfg: cfg}
}

// Handle routes an event to the matching notification channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload),
	}

	switch event.Type {
	case events.EventTicketCreated:
		n.logger.Info("TicketCreated", fields...)
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventTicketStatusChanged:
		n.logger.Info("TicketStatusChanged", fields...)
		n.sendEmailNotificationStub(ctx, event)
	case events.EventTicketMessageAdded:
		n.logger.Info("TicketMessageAdded", fields...)
	case events.EventChatEscalated:
		n.logger.Warn("ChatEscalated", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	default:
		n.logger.Debug("ignoring event", zap.String("event_type", string(event.Type)))
		return nil
	}
	n.delivered.Add(1)
	return nil
}

// Delivered reports how many events were handled.
func (n *NotificationService) Delivered() int64 {
	return n.delivered.Load()
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
