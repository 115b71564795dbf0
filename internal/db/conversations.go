package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopdesk/supportbot/internal/models"
)

var ErrConversationNotFound = errors.New("db: conversation not found")

// ConversationStore is the Mongo-backed conversation repository. Lookups are
// always scoped to the owning user.
type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(m *Mongo) *ConversationStore {
	return &ConversationStore{coll: m.Conversations}
}

func (s *ConversationStore) Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	filter := bson.M{"conversation_id": conversationID, "user_id": userID}

	var conv models.Conversation
	if err := s.coll.FindOne(ctx, filter).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("mongo: find conversation: %w", err)
	}

	return &conv, nil
}

func (s *ConversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	if _, err := s.coll.InsertOne(ctx, conv); err != nil {
		return fmt.Errorf("mongo: insert conversation: %w", err)
	}
	return nil
}

// AppendTurn adds the user/assistant pair in one update so a conversation is
// never left with only half a turn persisted.
func (s *ConversationStore) AppendTurn(ctx context.Context, userID, conversationID string, userMsg, assistantMsg models.Message) error {
	filter := bson.M{"conversation_id": conversationID, "user_id": userID}
	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": []models.Message{userMsg, assistantMsg}}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongo: append turn: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}

// ListByUser returns title and id of every conversation the user owns,
// most recently updated first.
func (s *ConversationStore) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	opts := options.Find().
		SetProjection(bson.M{"title": 1, "conversation_id": 1, "_id": 0}).
		SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("mongo: decode conversations: %w", err)
	}

	return conversations, nil
}
