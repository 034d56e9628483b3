package dto

// ChatRequest is the body of a chat invocation.
type ChatRequest struct {
	Message  string `json:"message"`
	TicketID string `json:"ticketId,omitempty"`
}

// ChatResponse is either a reply or an error with an escalation hint.
type ChatResponse struct {
	Response           string `json:"response,omitempty"`
	Error              string `json:"error,omitempty"`
	ShouldCreateTicket bool   `json:"shouldCreateTicket,omitempty"`
}
