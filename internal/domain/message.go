package domain

import "time"

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat transcript. Messages are never modified after creation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}
