// Package chat runs the per-request sequence: load history, assemble the
// prompt, call the model, sanitize the reply, persist the turn. Collaborators
// arrive through narrow interfaces so the flow is testable without Mongo or
// a live model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopdesk/supportbot/internal/knowledge"
	"github.com/shopdesk/supportbot/internal/models"
	"github.com/shopdesk/supportbot/internal/prompt"
)

var ErrEmptyMessage = errors.New("chat: message is required")

// Store is the slice of the conversation repository the orchestrator needs.
type Store interface {
	Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	AppendTurn(ctx context.Context, userID, conversationID string, userMsg, assistantMsg models.Message) error
}

// Replier is the hosted model collaborator.
type Replier interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	UserID         string
	ConversationID string
	Message        string
}

type Result struct {
	Answer         string
	ConversationID string
}

type Service struct {
	store  Store
	model  Replier
	kb     *knowledge.Base
	logger *zap.SugaredLogger
}

func NewService(store Store, model Replier, kb *knowledge.Base, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, model: model, kb: kb, logger: logger}
}

// Respond handles one authenticated chat turn. Nothing is persisted until
// both turn messages exist, so a failed model call leaves no partial state.
func (s *Service) Respond(ctx context.Context, req Request) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	var (
		conv    *models.Conversation
		history []models.Message
	)

	if req.ConversationID != "" {
		found, err := s.store.Find(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		conv = found
		history = prompt.Window(conv.Messages, prompt.HistoryWindow)
	}

	assembled := prompt.Assemble(prompt.Input{
		Preamble:    prompt.SupportPreamble,
		Documents:   s.kb.Reports(),
		History:     history,
		UserMessage: message,
	})

	raw, err := s.model.GenerateReply(ctx, assembled)
	if err != nil {
		return nil, fmt.Errorf("chat: model call: %w", err)
	}

	answer := prompt.Sanitize(raw)

	userMsg, err := models.NewMessage(models.RoleUser, message)
	if err != nil {
		return nil, err
	}
	assistantMsg, err := models.NewMessage(models.RoleAssistant, answer)
	if err != nil {
		return nil, fmt.Errorf("chat: model reply unusable: %w", err)
	}

	if conv != nil {
		if err := s.store.AppendTurn(ctx, req.UserID, conv.ID, userMsg, assistantMsg); err != nil {
			return nil, err
		}
		s.logger.Debugw("turn appended", "conversation_id", conv.ID, "history_len", len(conv.Messages))
		return &Result{Answer: answer, ConversationID: conv.ID}, nil
	}

	now := time.Now().UTC()
	conv = &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Title:     models.TitleFromMessage(message),
		Messages:  []models.Message{userMsg, assistantMsg},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Debugw("conversation created", "conversation_id", conv.ID, "title", conv.Title)
	return &Result{Answer: answer, ConversationID: conv.ID}, nil
}

// RespondOnce handles the stateless widget endpoint: no history, no
// persistence, catalog knowledge plus optional extracted file text.
func (s *Service) RespondOnce(ctx context.Context, message, fileText string) (string, error) {
	if strings.TrimSpace(message) == "" && strings.TrimSpace(fileText) == "" {
		return "", ErrEmptyMessage
	}

	assembled := prompt.Assemble(prompt.Input{
		Preamble:    prompt.CatalogPreamble,
		Documents:   s.kb.Catalog(),
		FileText:    fileText,
		UserMessage: message,
	})

	raw, err := s.model.GenerateReply(ctx, assembled)
	if err != nil {
		return "", fmt.Errorf("chat: model call: %w", err)
	}

	return prompt.Sanitize(raw), nil
}
