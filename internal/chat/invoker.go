package chat

import (
	"context"
	"fmt"
	"net/http"
)

// Escalation tags recorded on a session.
const (
	TagRateLimited    = "rate_limited"
	TagQuotaExhausted = "quota_exhausted"
	TagUnavailable    = "upstream_unavailable"
	TagUnreachable    = "unreachable"
)

// Invoker sends one message to the chat endpoint and returns the reply text.
type Invoker interface {
	Invoke(ctx context.Context, message, ticketID string) (string, error)
}

// InvocationError is a non-2xx answer from the chat endpoint.
type InvocationError struct {
	StatusCode         int
	Message            string
	ShouldCreateTicket bool
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("chat invocation failed with %d: %s", e.StatusCode, e.Message)
}

// Tag classifies the failure for the escalation signal.
func (e *InvocationError) Tag() string {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return TagRateLimited
	case http.StatusPaymentRequired:
		return TagQuotaExhausted
	default:
		return TagUnavailable
	}
}
