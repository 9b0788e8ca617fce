package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepository handles the chats and messages collections.
type ChatRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

// NewChatRepository creates a new instance of ChatRepository.
func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}
}

// CreateChat inserts a new chat.
func (r *ChatRepository) CreateChat(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt

	result, err := r.chats.InsertOne(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	chat.ID = insertedID
	return chat, nil
}

// GetChatByID retrieves a chat by its ID.
func (r *ChatRepository) GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := r.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("chat %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat: %v", err)
	}
	return &chat, nil
}

// FindDirectChat looks up the direct chat for a sorted participant pair.
func (r *ChatRepository) FindDirectChat(ctx context.Context, participants []primitive.ObjectID) (*models.Chat, error) {
	filter := bson.M{
		"type":         models.ChatDirect,
		"participants": participants,
	}

	var chat models.Chat
	err := r.chats.FindOne(ctx, filter).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("direct chat: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find direct chat: %v", err)
	}
	return &chat, nil
}

// ListChatsForUser returns all chats the user participates in, most recently
// updated first.
func (r *ChatRepository) ListChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := r.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %v", err)
	}
	defer cursor.Close(ctx)

	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %v", err)
	}
	return chats, nil
}

// SetLastMessage updates the chat's denormalized last-message pointer.
func (r *ChatRepository) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, preview *models.MessagePreview) error {
	_, err := r.chats.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{
			"last_message": preview,
			"updated_at":   preview.CreatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last message: %v", err)
	}
	return nil
}

// InsertMessage appends a message to a chat.
func (r *ChatRepository) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	result, err := r.messages.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	msg.ID = insertedID
	return msg, nil
}

// GetMessageByID retrieves a message by its ID.
func (r *ChatRepository) GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("message %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %v", err)
	}
	return &msg, nil
}

// GetMessagesByChat returns the chat's messages in append order.
func (r *ChatRepository) GetMessagesByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"chat_id": chatID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}
	return messages, nil
}
