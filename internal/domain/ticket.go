package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategories lists the categories a requester can pick from.
var TicketCategories = []string{
	"Network Issues",
	"Software Problems",
	"Hardware Malfunction",
	"Login Issues",
	"Email Problems",
	"Performance Issues",
	"Other",
}

// IsKnownCategory reports whether category is one of TicketCategories.
func IsKnownCategory(category string) bool {
	_, ok := canonicalCategory(strings.TrimSpace(category))
	return ok
}

// Ticket is a persisted support request.
type Ticket struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"user_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Priority     TicketPriority `json:"priority"`
	Status       TicketStatus   `json:"status"`
	TicketNumber string         `json:"ticket_number"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TicketFields is what a requester supplies when opening a ticket.
type TicketFields struct {
	Title       string
	Description string
	Category    string
	Priority    TicketPriority
}

var statusTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusOpen, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusInProgress, TicketStatusClosed},
}

// CanTransition reports whether an admin may move a ticket from one status to another.
func CanTransition(from, to TicketStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Normalize trims the fields, canonicalises the category and applies the default priority.
// The returned map holds one message per invalid field and is nil when the fields are valid.
func (f TicketFields) Normalize() (TicketFields, map[string]any) {
	out := TicketFields{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
		Priority:    TicketPriority(strings.ToLower(strings.TrimSpace(string(f.Priority)))),
	}
	if out.Priority == "" {
		out.Priority = TicketPriorityMedium
	}

	problems := map[string]any{}
	if out.Title == "" {
		problems["title"] = "title is required"
	}
	if canonical, ok := canonicalCategory(out.Category); ok {
		out.Category = canonical
	} else {
		problems["category"] = "category must be one of: " + strings.Join(TicketCategories, ", ")
	}
	if !out.Priority.Valid() {
		problems["priority"] = "priority must be low, medium, high or critical"
	}
	if len(problems) == 0 {
		return out, nil
	}
	return out, problems
}

func canonicalCategory(category string) (string, bool) {
	for _, c := range TicketCategories {
		if strings.EqualFold(c, category) {
			return c, true
		}
	}
	return "", false
}
