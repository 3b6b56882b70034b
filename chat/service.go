// Package chat turns the retrieval engine into a per-user legal
// consultation service with persistent history.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/juridai/lexrag"
	"github.com/juridai/lexrag/conversation"
	"github.com/juridai/lexrag/model"
)

// emptyKnowledgeBaseReply is returned verbatim when no documents have been
// ingested yet, so users get guidance instead of an error.
const emptyKnowledgeBaseReply = "I'm sorry, my knowledge base is currently empty. " +
	"Please ask an administrator to upload legal documents."

// citationPreviewLimit caps how much of a passage is stored with a message.
const citationPreviewLimit = 200

// Answerer produces a grounded answer for a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (*lexrag.Answer, error)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	ConversationID string
	Text           string
	Citations      []conversation.Citation
}

// Service routes user questions through the engine and records both sides
// of the exchange in the user's conversation.
type Service struct {
	engine Answerer
	store  conversation.Store
	logger *lexrag.Logger
}

// NewService wires an engine and a conversation store into a chat service.
func NewService(engine Answerer, store conversation.Store, optFns ...ServiceOption) (*Service, error) {
	if engine == nil || store == nil {
		return nil, lexrag.ErrNotConfigured
	}

	svc := &Service{
		engine: engine,
		store:  store,
		logger: lexrag.NoopLogger(),
	}
	for _, fn := range optFns {
		fn(svc)
	}
	return svc, nil
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for chat turns.
func WithLogger(logger *lexrag.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Ask answers a question for userID, continuing their latest conversation
// or starting a new one. Both the question and the reply are persisted.
func (s *Service) Ask(ctx context.Context, userID, question string) (*Reply, error) {
	conv, err := s.store.LatestConversationFor(ctx, userID)
	if errors.Is(err, conversation.ErrNoConversation) {
		conv, err = s.store.CreateConversation(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	if err := s.store.AppendMessage(ctx, conv.ID, conversation.Message{
		Role:    conversation.RoleUser,
		Content: question,
	}); err != nil {
		return nil, fmt.Errorf("recording question: %w", err)
	}

	reply := &Reply{ConversationID: conv.ID}

	answer, err := s.engine.Answer(ctx, question)
	switch {
	case errors.Is(err, lexrag.ErrKnowledgeBaseEmpty):
		reply.Text = emptyKnowledgeBaseReply
	case err != nil:
		return nil, err
	default:
		reply.Text = answer.Text
		reply.Citations = citationsFromSources(answer.Sources)
	}

	if err := s.store.AppendMessage(ctx, conv.ID, conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   reply.Text,
		Citations: reply.Citations,
	}); err != nil {
		return nil, fmt.Errorf("recording reply: %w", err)
	}

	s.logger.InfoContext(ctx, "chat turn completed",
		"user", userID,
		"conversation", conv.ID,
		"citations", len(reply.Citations),
	)

	return reply, nil
}

// History returns the messages of userID's latest conversation, oldest
// first. A user who never asked anything gets an empty history.
func (s *Service) History(ctx context.Context, userID string) ([]conversation.Message, error) {
	conv, err := s.store.LatestConversationFor(ctx, userID)
	if errors.Is(err, conversation.ErrNoConversation) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}
	return s.store.Messages(ctx, conv.ID)
}

func citationsFromSources(sources []model.Passage) []conversation.Citation {
	citations := make([]conversation.Citation, 0, len(sources))
	for _, src := range sources {
		citations = append(citations, conversation.Citation{
			Text:     previewText(src.Text, citationPreviewLimit),
			Metadata: src.CloneMetadata(),
		})
	}
	return citations
}

// previewText truncates on a rune boundary so multi-byte legal text stays
// valid UTF-8.
func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
