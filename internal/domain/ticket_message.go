package domain

import "time"

// SenderType indicates who authored a transcript record.
type SenderType string

const (
	SenderTypeUser SenderType = "user"
	SenderTypeAI   SenderType = "ai"
)

// TicketMessage is a chat turn persisted against a ticket.
type TicketMessage struct {
	ID         string
	TicketID   string
	SenderType SenderType
	Message    string
	CreatedAt  time.Time
}
