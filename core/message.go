package core

import "fmt"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn half: who said it and what was said.
// Ordering of messages within a session is append-only and significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-authored message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate checks that the message carries a known role.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unknown message role: %q", m.Role)
	}
}
