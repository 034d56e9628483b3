package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// CreateTicketRequest payload. TicketNumber is the client generated TK- number.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	TicketNumber string                `json:"ticket_number,omitempty"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse mirrors a stored ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	TicketNumber string                `json:"ticket_number"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// AdminTicketResponse adds the requester's email for triage views.
type AdminTicketResponse struct {
	TicketResponse
	RequesterEmail string `json:"requester_email"`
}

// TicketMessageResponse is one transcript record.
type TicketMessageResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id"`
	SenderType domain.SenderType `json:"sender_type"`
	Message    string            `json:"message"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		UserID:       t.OwnerID,
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		Priority:     t.Priority,
		Status:       t.Status,
		TicketNumber: t.TicketNumber,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// Ticket converts the response back into a domain ticket.
func (r TicketResponse) Ticket() domain.Ticket {
	return domain.Ticket{
		ID:           r.ID,
		OwnerID:      r.UserID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Priority:     r.Priority,
		Status:       r.Status,
		TicketNumber: r.TicketNumber,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewAdminTicketResponses maps search rows.
func NewAdminTicketResponses(rows []repository.TicketRow) []AdminTicketResponse {
	out := make([]AdminTicketResponse, 0, len(rows))
	for i := range rows {
		out = append(out, AdminTicketResponse{
			TicketResponse: NewTicketResponse(&rows[i].Ticket),
			RequesterEmail: rows[i].RequesterEmail,
		})
	}
	return out
}

// NewTicketMessageResponses maps transcript records.
func NewTicketMessageResponses(msgs []domain.TicketMessage) []TicketMessageResponse {
	out := make([]TicketMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, TicketMessageResponse{
			ID:         m.ID,
			TicketID:   m.TicketID,
			SenderType: m.SenderType,
			Message:    m.Message,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}
