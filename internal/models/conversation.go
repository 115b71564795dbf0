package models

import (
	"time"
	"unicode/utf8"
)

const titlePrefixRunes = 20

// Conversation is the persisted record of one user's chat thread. Messages
// are append-only and insertion-ordered; each completed request appends
// exactly one user/assistant pair.
type Conversation struct {
	ID        string    `bson:"conversation_id" json:"conversationId"`
	UserID    string    `bson:"user_id" json:"-"`
	Title     string    `bson:"title" json:"title"`
	Messages  []Message `bson:"messages" json:"messages"`
	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// TitleFromMessage derives a conversation title from the opening message.
func TitleFromMessage(message string) string {
	if utf8.RuneCountInString(message) <= titlePrefixRunes {
		return message
	}

	runes := []rune(message)
	return string(runes[:titlePrefixRunes])
}
