// Package conversation persists chat history so legal consultations keep
// their context across sessions. Three backends are provided: an in-memory
// store for tests, SQLite for single-node deployments and DynamoDB for
// shared deployments.
package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNoConversation is returned when an owner has no conversation yet.
var ErrNoConversation = errors.New("conversation: no conversation found")

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Citation is a passage excerpt an assistant message was grounded on.
type Citation struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Message is a single turn in a conversation.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Conversation groups the messages of one owner into a thread.
type Conversation struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists conversations and their messages.
type Store interface {
	// CreateConversation starts a new thread for owner.
	CreateConversation(ctx context.Context, owner string) (*Conversation, error)

	// LatestConversationFor returns the most recently created conversation
	// of owner, or ErrNoConversation.
	LatestConversationFor(ctx context.Context, owner string) (*Conversation, error)

	// AppendMessage adds a message to the end of a conversation.
	AppendMessage(ctx context.Context, conversationID string, msg Message) error

	// Messages returns all messages of a conversation in append order.
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}
