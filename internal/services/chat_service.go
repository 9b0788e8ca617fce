package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatStore is the persistence surface for chats and messages.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	FindDirectChat(ctx context.Context, participants []primitive.ObjectID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	SetLastMessage(ctx context.Context, chatID primitive.ObjectID, preview *models.MessagePreview) error
	InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	GetMessagesByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error)
}

// UserLookup resolves user ids to accounts.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ChatService owns conversations: direct-chat find-or-create, message append
// and single-level thread replies.
type ChatService struct {
	repo     ChatStore
	users    UserLookup
	notifier Notifier
	now      func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(repo ChatStore, users UserLookup, notifier Notifier) *ChatService {
	return &ChatService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// GetOrCreateDirectChat returns the one direct chat for the pair, creating it
// on first use. The participant pair is sorted before lookup so repeated calls
// in either argument order resolve to the same chat.
func (s *ChatService) GetOrCreateDirectChat(ctx context.Context, userA, userB primitive.ObjectID) (*models.Chat, error) {
	if userA == userB {
		return nil, fmt.Errorf("cannot open a chat with yourself: %w", apperrors.ErrValidation)
	}

	if _, err := s.users.GetUserByID(ctx, userA); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userB); err != nil {
		return nil, err
	}

	pair := sortedPair(userA, userB)
	chat, err := s.repo.FindDirectChat(ctx, pair)
	if err == nil {
		return chat, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	chat, err = s.repo.CreateChat(ctx, &models.Chat{
		Type:         models.ChatDirect,
		Participants: pair,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"chatID": chat.ID.Hex(),
		"userA":  userA.Hex(),
		"userB":  userB.Hex(),
	}).Info("Direct chat created")
	return chat, nil
}

// SendMessage appends a message to a chat, updates the chat's last-message
// pointer and notifies the other participants.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, msgType, content, fileURL, fileName string) (*models.Message, error) {
	if err := validateMessagePayload(msgType, content, fileURL); err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, chatID, senderID, msgType, content, fileURL, fileName, nil)
}

// ReplyTo appends a text message threaded under parentID. The parent must
// exist in the same chat and must itself be a root message: threads are one
// level deep.
func (s *ChatService) ReplyTo(ctx context.Context, chatID, parentID, senderID primitive.ObjectID, content string) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("reply content is required: %w", apperrors.ErrValidation)
	}

	parent, err := s.repo.GetMessageByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.ChatID != chatID {
		return nil, fmt.Errorf("parent message belongs to a different chat: %w", apperrors.ErrValidation)
	}
	if parent.ParentID != nil {
		return nil, fmt.Errorf("replies to replies are not supported: %w", apperrors.ErrValidation)
	}

	return s.appendMessage(ctx, chatID, senderID, models.MessageText, content, "", "", &parentID)
}

func (s *ChatService) appendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, msgType, content, fileURL, fileName string, parentID *primitive.ObjectID) (*models.Message, error) {
	chat, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !containsID(chat.Participants, senderID) {
		return nil, fmt.Errorf("sender is not a participant of this chat: %w", apperrors.ErrPermission)
	}

	sender, err := s.users.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Type:      msgType,
		Content:   content,
		FileURL:   fileURL,
		FileName:  fileName,
		ParentID:  parentID,
		CreatedAt: s.now(),
	}

	msg, err = s.repo.InsertMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	preview := &models.MessagePreview{
		MessageID: msg.ID,
		SenderID:  senderID,
		Type:      msg.Type,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.repo.SetLastMessage(ctx, chatID, preview); err != nil {
		return nil, err
	}

	title := messageTitle(msg.Type, sender.Username)
	body := msg.Content
	if body == "" {
		body = msg.FileName
	}
	for _, participant := range chat.Participants {
		if participant == senderID {
			continue
		}
		if err := s.notifier.Emit(ctx, participant, "message", title, body,
			EmitOptions{SenderID: &senderID, Link: "/chats/" + chatID.Hex()},
		); err != nil {
			logrus.WithError(err).Warnf("Failed to notify %s about new message", participant.Hex())
		}
	}

	return msg, nil
}

// GetChat returns a chat the user participates in.
func (s *ChatService) GetChat(ctx context.Context, chatID, userID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !containsID(chat.Participants, userID) {
		return nil, fmt.Errorf("not a participant of this chat: %w", apperrors.ErrPermission)
	}
	return chat, nil
}

// GetChatMessages returns the chat's flat message sequence in append order.
// The caller must be a participant.
func (s *ChatService) GetChatMessages(ctx context.Context, chatID, userID primitive.ObjectID) ([]models.Message, error) {
	chat, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !containsID(chat.Participants, userID) {
		return nil, fmt.Errorf("not a participant of this chat: %w", apperrors.ErrPermission)
	}
	return s.repo.GetMessagesByChat(ctx, chatID)
}

// GetChatThreads returns the chat's messages grouped into two-level threads.
func (s *ChatService) GetChatThreads(ctx context.Context, chatID, userID primitive.ObjectID) ([]models.Thread, error) {
	messages, err := s.GetChatMessages(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	return BuildThreads(messages), nil
}

// ListChats returns the chats a user participates in, most recently updated
// first.
func (s *ChatService) ListChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	return s.repo.ListChatsForUser(ctx, userID)
}

// BuildThreads turns a flat message sequence into a two-level tree: root
// messages in original order, each carrying its direct replies in original
// order. Pure and idempotent over the same input. Replies whose parent is not
// in the input are dropped.
func BuildThreads(messages []models.Message) []models.Thread {
	threads := make([]models.Thread, 0, len(messages))
	index := make(map[primitive.ObjectID]int, len(messages))

	for _, msg := range messages {
		if msg.ParentID == nil {
			index[msg.ID] = len(threads)
			threads = append(threads, models.Thread{Root: msg, Replies: []models.Message{}})
		}
	}
	for _, msg := range messages {
		if msg.ParentID == nil {
			continue
		}
		if i, ok := index[*msg.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, msg)
		}
	}
	return threads
}

func validateMessagePayload(msgType, content, fileURL string) error {
	switch msgType {
	case models.MessageText:
		if content == "" {
			return fmt.Errorf("text message requires content: %w", apperrors.ErrValidation)
		}
	case models.MessageImage, models.MessageVideo, models.MessageAudio, models.MessageFile:
		if fileURL == "" {
			return fmt.Errorf("%s message requires a file reference: %w", msgType, apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown message type %q: %w", msgType, apperrors.ErrValidation)
	}
	return nil
}

func messageTitle(msgType, senderName string) string {
	switch msgType {
	case models.MessageImage:
		return fmt.Sprintf("New image from %s", senderName)
	case models.MessageVideo:
		return fmt.Sprintf("New video from %s", senderName)
	case models.MessageAudio:
		return fmt.Sprintf("New voice message from %s", senderName)
	case models.MessageFile:
		return fmt.Sprintf("New file from %s", senderName)
	default:
		return fmt.Sprintf("New message from %s", senderName)
	}
}

func sortedPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return []primitive.ObjectID{a, b}
}
