package model

import (
	"fmt"
	"time"

	"conversation-store/internal/domain"
)

const (
	// DefaultTitle is used until the first user message names the conversation.
	DefaultTitle = "New Chat"
	// TitleMaxRunes bounds a derived title before the truncation marker.
	TitleMaxRunes = 50
	// TitleTruncationMarker is appended when a derived title was cut.
	TitleTruncationMarker = "..."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts exactly the stored role values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidRole, s)
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn. It is never mutated after being appended.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// MessageInput is what callers supply; id and timestamp are assigned by the store.
type MessageInput struct {
	Role    Role
	Content string
}

// Conversation is the ordered, titled collection of messages.
type Conversation struct {
	ID        string
	Title     string
	Timestamp time.Time
	Messages  []Message
}

func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     DefaultTitle,
		Timestamp: now,
		Messages:  make([]Message, 0, 8),
	}
}

// AddMessage appends msg and derives the title when msg is the first
// message and comes from the user.
func (c *Conversation) AddMessage(msg Message) {
	if msg.Role == RoleUser && c.IsEmpty() {
		c.Title = DeriveTitle(msg.Content)
	}
	c.Messages = append(c.Messages, msg)
}

func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// DeriveTitle keeps the first TitleMaxRunes characters of content and marks
// the cut when anything was dropped.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleMaxRunes {
		return content
	}
	return string(runes[:TitleMaxRunes]) + TitleTruncationMarker
}
