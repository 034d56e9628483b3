package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	defaultTicketListLimit = 100
	maxNumberAttempts      = 5
)

var ticketNumberPattern = regexp.MustCompile(`^TK-\d{1,19}$`)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. TicketNumber is the number the client
// generated before calling; it is kept when well formed and unused.
type TicketCreateInput struct {
	domain.TicketFields
	TicketNumber string
}

// AdminTicketFilter narrows the admin listing.
type AdminTicketFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// CreateTicket opens a ticket for the owner.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	fields, problems := input.TicketFields.Normalize()
	if problems != nil {
		return nil, apperrors.NewValidationError("invalid ticket", problems)
	}

	number, err := s.assignNumber(ctx, strings.TrimSpace(input.TicketNumber))
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		OwnerID:      ownerID,
		Title:        fields.Title,
		Description:  fields.Description,
		Category:     fields.Category,
		Priority:     fields.Priority,
		Status:       domain.TicketStatusOpen,
		TicketNumber: number,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.New(events.EventTicketCreated, ticket.ID, ownerID, events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		Category:     ticket.Category,
		Priority:     ticket.Priority,
		Title:        ticket.Title,
	}))
	return ticket, nil
}

// assignNumber keeps a well-formed unused client number, otherwise derives one from the clock.
func (s *TicketService) assignNumber(ctx context.Context, proposed string) (string, error) {
	if ticketNumberPattern.MatchString(proposed) {
		exists, err := s.tickets.NumberExists(ctx, proposed)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if !exists {
			return proposed, nil
		}
	}

	millis := s.now().UnixMilli()
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := fmt.Sprintf("TK-%d", millis+int64(attempt))
		exists, err := s.tickets.NumberExists(ctx, candidate)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperrors.NewConflict("could not allocate a ticket number", nil)
}

// ListTickets returns the owner's tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, ownerID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = defaultTicketListLimit
	}
	tickets, err := s.tickets.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// LatestTicket returns the owner's newest ticket, or nil when they have none.
func (s *TicketService) LatestTicket(ctx context.Context, ownerID string) (*domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID, 1)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	return &tickets[0], nil
}

// GetOwnedTicket loads a ticket and checks it belongs to ownerID.
func (s *TicketService) GetOwnedTicket(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	return ticket, nil
}

// loadTicket maps ids that cannot exist, including non-UUIDs, to NotFound.
func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListMessages returns the chat transcript of an owned ticket.
func (s *TicketService) ListMessages(ctx context.Context, ownerID, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.GetOwnedTicket(ctx, ownerID, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// SearchTickets lists tickets for administrators.
func (s *TicketService) SearchTickets(ctx context.Context, filter AdminTicketFilter) ([]repository.TicketRow, error) {
	repoFilter := repository.TicketFilter{Limit: filter.Limit, Offset: filter.Offset}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = defaultTicketListLimit
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		repoFilter.SearchTerm = &term
	}
	if status := strings.TrimSpace(filter.Status); status != "" && status != "all" {
		st := domain.TicketStatus(status)
		if !st.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
		repoFilter.Statuses = []domain.TicketStatus{st}
	}

	rows, err := s.tickets.Search(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

// UpdateStatus moves a ticket along its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, actorID, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	current, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": current.Status,
			"to":   status,
		})
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.New(events.EventTicketStatusChanged, ticketID, actorID, events.TicketStatusChangedPayload{
		OldStatus: current.Status,
		NewStatus: status,
	}))
	return updated, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
