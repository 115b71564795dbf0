package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/shopdesk/supportbot/internal/chat"
	"github.com/shopdesk/supportbot/internal/db"
	"github.com/shopdesk/supportbot/internal/knowledge"
	"github.com/shopdesk/supportbot/internal/models"
)

type fakeStore struct {
	conversations map[string]*models.Conversation
	created       int
	appended      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[string]*models.Conversation)}
}

func (f *fakeStore) Find(_ context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, ok := f.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, db.ErrConversationNotFound
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeStore) Create(_ context.Context, conv *models.Conversation) error {
	f.created++
	copied := *conv
	f.conversations[conv.ID] = &copied
	return nil
}

func (f *fakeStore) AppendTurn(_ context.Context, userID, conversationID string, userMsg, assistantMsg models.Message) error {
	conv, ok := f.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return db.ErrConversationNotFound
	}
	f.appended++
	conv.Messages = append(conv.Messages, userMsg, assistantMsg)
	return nil
}

type fakeReplier struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeReplier) GenerateReply(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testBase() *knowledge.Base {
	return knowledge.NewBase(
		[]knowledge.Document{{Title: "Wireless Mouse", Description: "Free returns within 30 days."}},
		[]knowledge.Document{{Title: "profit and loss", Raw: []byte(`{"revenue":100}`)}},
	)
}

func newTestService(store *fakeStore, model *fakeReplier) *chat.Service {
	return chat.NewService(store, model, testBase(), zap.NewNop().Sugar())
}

func TestRespondCreatesConversationWithBothMessages(t *testing.T) {
	store := newFakeStore()
	model := &fakeReplier{reply: "**You** can return items within 30 days."}
	svc := newTestService(store, model)

	result, err := svc.Respond(context.Background(), chat.Request{
		UserID:  "user-1",
		Message: "What is your return policy?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ConversationID == "" {
		t.Fatalf("expected a conversation id")
	}
	if result.Answer != "You can return items within 30 days." {
		t.Fatalf("expected sanitized answer, got %q", result.Answer)
	}

	conv := store.conversations[result.ConversationID]
	if conv == nil {
		t.Fatalf("conversation was not persisted")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected exactly 2 persisted messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != models.RoleUser || conv.Messages[1].Role != models.RoleAssistant {
		t.Fatalf("expected user then assistant, got %v then %v", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	if conv.Title != "What is your return " {
		t.Fatalf("expected 20-rune title prefix, got %q", conv.Title)
	}

	if !strings.Contains(model.lastPrompt, "Here is the profit and loss data:") {
		t.Fatalf("expected report context in prompt")
	}
}

func TestRespondWindowsLongHistory(t *testing.T) {
	store := newFakeStore()
	model := &fakeReplier{reply: "ok"}
	svc := newTestService(store, model)

	messages := make([]models.Message, 0, 30)
	for i := 0; i < 30; i++ {
		messages = append(messages, models.Message{Role: models.RoleUser, Content: fmt.Sprintf("old-%d", i)})
	}
	store.conversations["conv-1"] = &models.Conversation{
		ID:       "conv-1",
		UserID:   "user-1",
		Messages: messages,
	}

	if _, err := svc.Respond(context.Background(), chat.Request{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Message:        "and now?",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if strings.Contains(model.lastPrompt, fmt.Sprintf("old-%d\n", i)) {
			t.Fatalf("message old-%d should have been windowed out", i)
		}
	}
	for i := 5; i < 30; i++ {
		if !strings.Contains(model.lastPrompt, fmt.Sprintf("old-%d", i)) {
			t.Fatalf("message old-%d missing from prompt", i)
		}
	}
	if store.appended != 1 {
		t.Fatalf("expected exactly one append, got %d", store.appended)
	}
}

func TestRespondUnknownConversation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeReplier{reply: "ok"})

	_, err := svc.Respond(context.Background(), chat.Request{
		UserID:         "user-1",
		ConversationID: "missing",
		Message:        "hello",
	})
	if !errors.Is(err, db.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestRespondForeignConversationIsNotVisible(t *testing.T) {
	store := newFakeStore()
	store.conversations["conv-1"] = &models.Conversation{
		ID:       "conv-1",
		UserID:   "someone-else",
		Messages: []models.Message{{Role: models.RoleUser, Content: "secret"}},
	}
	model := &fakeReplier{reply: "ok"}
	svc := newTestService(store, model)

	_, err := svc.Respond(context.Background(), chat.Request{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Message:        "what did they say?",
	})
	if !errors.Is(err, db.ErrConversationNotFound) {
		t.Fatalf("expected owner-scoped lookup to miss, got %v", err)
	}
	if model.lastPrompt != "" {
		t.Fatalf("model must not be called for a foreign conversation")
	}
}

func TestRespondModelFailurePersistsNothing(t *testing.T) {
	store := newFakeStore()
	store.conversations["conv-1"] = &models.Conversation{
		ID:       "conv-1",
		UserID:   "user-1",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	}
	svc := newTestService(store, &fakeReplier{err: errors.New("model down")})

	_, err := svc.Respond(context.Background(), chat.Request{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Message:        "hello",
	})
	if err == nil {
		t.Fatalf("expected model failure to propagate")
	}

	if store.appended != 0 || store.created != 0 {
		t.Fatalf("nothing may be persisted when the model call fails")
	}
	if got := len(store.conversations["conv-1"].Messages); got != 1 {
		t.Fatalf("conversation must be untouched, has %d messages", got)
	}
}

func TestRespondEmptyMessage(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeReplier{reply: "ok"})

	if _, err := svc.Respond(context.Background(), chat.Request{UserID: "user-1"}); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestRespondOnceUsesCatalogAndFileText(t *testing.T) {
	model := &fakeReplier{reply: "*Sure!* The mouse has free returns."}
	svc := newTestService(newFakeStore(), model)

	answer, err := svc.RespondOnce(context.Background(), "", "scanned receipt for a mouse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Sure! The mouse has free returns." {
		t.Fatalf("expected sanitized answer, got %q", answer)
	}

	if !strings.Contains(model.lastPrompt, "Product: Wireless Mouse") {
		t.Fatalf("expected catalog context in widget prompt")
	}
	if !strings.Contains(model.lastPrompt, "File content:\nscanned receipt for a mouse") {
		t.Fatalf("expected file section in widget prompt")
	}

	if _, err := svc.RespondOnce(context.Background(), "", ""); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage without message or file, got %v", err)
	}
}
