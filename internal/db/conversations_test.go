package db_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopdesk/supportbot/internal/db"
	"github.com/shopdesk/supportbot/internal/models"
	"github.com/shopdesk/supportbot/internal/utils"
)

func setupMongo(t *testing.T) *db.Mongo {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	database := "supportbot_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	store, err := db.NewMongo(context.Background(), utils.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	})

	if err := store.EnsureCollections(context.Background()); err != nil {
		t.Fatalf("ensure collections failed: %v", err)
	}

	return store
}

func TestConversationStoreCRUD(t *testing.T) {
	store := db.NewConversationStore(setupMongo(t))
	ctx := context.Background()

	userID := uuid.NewString()
	conv := &models.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  "What is your return ",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "What is your return policy?"},
			{Role: models.RoleAssistant, Content: "Free returns within 30 days."},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := store.Create(ctx, conv); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := store.Find(ctx, userID, conv.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(found.Messages))
	}

	if _, err := store.Find(ctx, uuid.NewString(), conv.ID); !errors.Is(err, db.ErrConversationNotFound) {
		t.Fatalf("lookup must be owner-scoped, got %v", err)
	}

	userMsg := models.Message{Role: models.RoleUser, Content: "And for keyboards?"}
	assistantMsg := models.Message{Role: models.RoleAssistant, Content: "Same policy."}
	if err := store.AppendTurn(ctx, userID, conv.ID, userMsg, assistantMsg); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	found, err = store.Find(ctx, userID, conv.ID)
	if err != nil {
		t.Fatalf("find after append failed: %v", err)
	}
	if len(found.Messages) != 4 {
		t.Fatalf("expected 4 messages after one appended turn, got %d", len(found.Messages))
	}
	if found.Messages[2].Content != "And for keyboards?" || found.Messages[3].Content != "Same policy." {
		t.Fatalf("appended turn out of order: %+v", found.Messages[2:])
	}

	if err := store.AppendTurn(ctx, uuid.NewString(), conv.ID, userMsg, assistantMsg); !errors.Is(err, db.ErrConversationNotFound) {
		t.Fatalf("append must be owner-scoped, got %v", err)
	}

	listed, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != conv.ID || listed[0].Title != conv.Title {
		t.Fatalf("unexpected listing: %+v", listed)
	}
}
