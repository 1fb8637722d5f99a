// Package domain defines core entities and value objects for TARS.
//
// The domain layer is independent of infrastructure concerns and represents
// pure business logic and data structures: chat messages, tool calls,
// intents, security verdicts and turn results.
package domain

import (
	"sync"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ChatMessage is one entry of a conversation. Immutable once created. Tool
// transcripts travel as RoleTool messages with the transcript in Content.
type ChatMessage struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewChatMessage stamps a message with the current time.
func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content, Timestamp: time.Now()}
}

// Session is a bounded, ordered conversation history. When the history grows
// beyond the configured maximum the oldest messages are trimmed. Safe for
// concurrent use, although turns are serialized by the orchestrator anyway.
type Session struct {
	mu       sync.Mutex
	max      int
	messages []ChatMessage
}

// NewSession builds a session keeping at most max messages (0 means the
// default of 50).
func NewSession(max int) *Session {
	if max <= 0 {
		max = 50
	}
	return &Session{max: max}
}

// Append adds a message, trimming the oldest entries beyond the bound.
func (s *Session) Append(msg ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.max; over > 0 {
		s.messages = append([]ChatMessage(nil), s.messages[over:]...)
	}
}

// Messages returns a copy of the current history, oldest first.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of retained messages.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
