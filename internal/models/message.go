package models

import (
	"errors"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var (
	ErrInvalidRole  = errors.New("models: role must be user, assistant or system")
	ErrEmptyContent = errors.New("models: message content cannot be empty")
)

// Message is a single conversation turn. Persisted messages always carry one
// of the three enumerated roles and non-empty content.
type Message struct {
	Role    Role   `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// NewMessage validates role and content before the message enters a
// conversation. Content is kept verbatim apart from the emptiness check.
func NewMessage(role Role, content string) (Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return Message{}, ErrInvalidRole
	}

	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}

	return Message{Role: role, Content: content}, nil
}
