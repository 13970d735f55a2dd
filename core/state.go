package core

import "fmt"

// MessageState is the per-turn working record threaded through the agent
// pipeline.
//
// ShortTerm is the authoritative conversation transcript for the session and
// only ever grows. LongTerm holds the snippets retrieved for the current turn
// only; it is overwritten on every turn and must never be treated as
// authoritative memory (that lives in the vector index).
type MessageState struct {
	ShortTerm []Message `json:"short_term"`
	LongTerm  []string  `json:"long_term"`
	SessionID string    `json:"session_id"`
}

// NewMessageState creates an empty state for a session.
func NewMessageState(sessionID string) *MessageState {
	return &MessageState{SessionID: sessionID}
}

// AppendUser appends the newest user message to the transcript.
func (s *MessageState) AppendUser(content string) {
	s.ShortTerm = append(s.ShortTerm, UserMessage(content))
}

// AppendAssistant appends the newest assistant message to the transcript.
func (s *MessageState) AppendAssistant(content string) {
	s.ShortTerm = append(s.ShortTerm, AssistantMessage(content))
}

// Validate checks structural invariants. It is called at the state-machine
// boundary: on checkpoint load and on turn input.
func (s *MessageState) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("message state missing session id")
	}
	for i, msg := range s.ShortTerm {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("short-term message %d: %w", i, err)
		}
	}
	return nil
}
