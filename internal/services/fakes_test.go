package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserStore is an in-memory stand-in for the user repository.
type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return user, nil
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
}

func (s *fakeUserStore) GetUserByVerificationToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range s.users {
		if u.VerifyToken == token && token != "" {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("verification token: %w", apperrors.ErrNotFound)
}

func (s *fakeUserStore) GetUserByResetToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range s.users {
		if u.ResetToken == token && token != "" {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("reset token: %w", apperrors.ErrNotFound)
}

func (s *fakeUserStore) UpdateUserFields(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	for key, value := range fields {
		switch key {
		case "username":
			u.Username = value.(string)
		case "is_verified":
			u.IsVerified = value.(bool)
		case "verify_token":
			u.VerifyToken = value.(string)
		case "reset_token":
			u.ResetToken = value.(string)
		case "reset_token_exp":
			u.ResetTokenExp = value.(time.Time)
		case "hashed_password":
			u.HashedPassword = value.(string)
		case "last_active_at":
			u.LastActiveAt = value.(time.Time)
		case "streak_count":
			u.StreakCount = value.(int)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (s *fakeUserStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *fakeUserStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	return users, nil
}

func (s *fakeUserStore) GetUsersByRole(_ context.Context, role string) ([]models.User, error) {
	var users []models.User
	for _, u := range s.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	return users, nil
}

func (s *fakeUserStore) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	var users []models.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *fakeUserStore) AddBadge(_ context.Context, userID primitive.ObjectID, grant models.BadgeGrant) error {
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
	}
	u.Badges = append(u.Badges, grant)
	return nil
}

func (s *fakeUserStore) AddFollowEdge(_ context.Context, actorID, targetID primitive.ObjectID) error {
	s.users[actorID].Following = appendUnique(s.users[actorID].Following, targetID)
	s.users[targetID].Followers = appendUnique(s.users[targetID].Followers, actorID)
	return nil
}

func (s *fakeUserStore) RemoveFollowEdge(_ context.Context, actorID, targetID primitive.ObjectID) error {
	s.users[actorID].Following = removeID(s.users[actorID].Following, targetID)
	s.users[targetID].Followers = removeID(s.users[targetID].Followers, actorID)
	return nil
}

func (s *fakeUserStore) AddConnection(_ context.Context, a, b primitive.ObjectID) error {
	s.users[a].Connections = appendUnique(s.users[a].Connections, b)
	s.users[b].Connections = appendUnique(s.users[b].Connections, a)
	return nil
}

func (s *fakeUserStore) RemoveConnection(_ context.Context, a, b primitive.ObjectID) error {
	s.users[a].Connections = removeID(s.users[a].Connections, b)
	s.users[b].Connections = removeID(s.users[b].Connections, a)
	return nil
}

func appendUnique(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// fakeChatStore is an in-memory stand-in for the chat repository. Messages
// keep insert order.
type fakeChatStore struct {
	chats    map[primitive.ObjectID]*models.Chat
	messages []models.Message
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: make(map[primitive.ObjectID]*models.Chat)}
}

func (s *fakeChatStore) CreateChat(_ context.Context, chat *models.Chat) (*models.Chat, error) {
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	s.chats[chat.ID] = chat
	return chat, nil
}

func (s *fakeChatStore) GetChatByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	if c, ok := s.chats[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, fmt.Errorf("chat %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeChatStore) FindDirectChat(_ context.Context, participants []primitive.ObjectID) (*models.Chat, error) {
	for _, c := range s.chats {
		if c.Type != models.ChatDirect || len(c.Participants) != len(participants) {
			continue
		}
		match := true
		for i := range participants {
			if c.Participants[i] != participants[i] {
				match = false
				break
			}
		}
		if match {
			copied := *c
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("direct chat: %w", apperrors.ErrNotFound)
}

func (s *fakeChatStore) ListChatsForUser(_ context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	var chats []models.Chat
	for _, c := range s.chats {
		for _, p := range c.Participants {
			if p == userID {
				chats = append(chats, *c)
				break
			}
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

func (s *fakeChatStore) SetLastMessage(_ context.Context, chatID primitive.ObjectID, preview *models.MessagePreview) error {
	c, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), apperrors.ErrNotFound)
	}
	c.LastMessage = preview
	c.UpdatedAt = preview.CreatedAt
	return nil
}

func (s *fakeChatStore) InsertMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	msg.ID = primitive.NewObjectID()
	s.messages = append(s.messages, *msg)
	return msg, nil
}

func (s *fakeChatStore) GetMessageByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			copied := s.messages[i]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeChatStore) GetMessagesByChat(_ context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	var messages []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

// fakeNotificationStore is an in-memory stand-in for the notification
// repository.
type fakeNotificationStore struct {
	notifications []models.Notification
	broadcasts    map[primitive.ObjectID]*models.Broadcast
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{broadcasts: make(map[primitive.ObjectID]*models.Broadcast)}
}

func (s *fakeNotificationStore) InsertNotification(_ context.Context, notif *models.Notification) error {
	notif.ID = primitive.NewObjectID()
	s.notifications = append(s.notifications, *notif)
	return nil
}

func (s *fakeNotificationStore) InsertNotifications(_ context.Context, notifs []models.Notification) error {
	for i := range notifs {
		notifs[i].ID = primitive.NewObjectID()
		s.notifications = append(s.notifications, notifs[i])
	}
	return nil
}

func (s *fakeNotificationStore) GetUserNotifications(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && n.Status == models.StatusDelivered {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id primitive.ObjectID) error {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Status = models.StatusRead
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID primitive.ObjectID) error {
	for i := range s.notifications {
		if s.notifications[i].UserID == userID && s.notifications[i].Status == models.StatusDelivered {
			s.notifications[i].Status = models.StatusRead
		}
	}
	return nil
}

func (s *fakeNotificationStore) DeleteNotification(_ context.Context, id primitive.ObjectID) error {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeNotificationStore) DeleteExpiredNotifications(_ context.Context) error {
	kept := s.notifications[:0]
	now := time.Now()
	for _, n := range s.notifications {
		if n.ExpiresAt.After(now) {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	return nil
}

func (s *fakeNotificationStore) InsertBroadcast(_ context.Context, b *models.Broadcast) (*models.Broadcast, error) {
	b.ID = primitive.NewObjectID()
	stored := *b
	s.broadcasts[b.ID] = &stored
	return b, nil
}

func (s *fakeNotificationStore) GetBroadcastByID(_ context.Context, id primitive.ObjectID) (*models.Broadcast, error) {
	if b, ok := s.broadcasts[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
}

func (s *fakeNotificationStore) ListBroadcasts(_ context.Context, f models.BroadcastFilter) ([]models.Broadcast, error) {
	var out []models.Broadcast
	for _, b := range s.broadcasts {
		if f.Type != "" && b.Type != f.Type {
			continue
		}
		if f.Priority != "" && b.Priority != f.Priority {
			continue
		}
		if f.TargetGroup != "" && b.TargetGroup != f.TargetGroup {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeNotificationStore) UpdateBroadcast(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	b, ok := s.broadcasts[id]
	if !ok {
		return fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	for key, value := range fields {
		switch key {
		case "title":
			b.Title = value.(string)
		case "message":
			b.Message = value.(string)
		case "priority":
			b.Priority = value.(string)
		}
	}
	return nil
}

func (s *fakeNotificationStore) DeleteBroadcast(_ context.Context, id primitive.ObjectID) error {
	if _, ok := s.broadcasts[id]; !ok {
		return fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	delete(s.broadcasts, id)
	return nil
}

func (s *fakeNotificationStore) FindDueBroadcasts(_ context.Context, now time.Time) ([]models.Broadcast, error) {
	var out []models.Broadcast
	for _, b := range s.broadcasts {
		if b.Status == models.StatusPending && b.ScheduledFor != nil && !b.ScheduledFor.After(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) PromoteBroadcast(_ context.Context, id primitive.ObjectID, deliveredAt time.Time) (bool, error) {
	b, ok := s.broadcasts[id]
	if !ok || b.Status != models.StatusPending {
		return false, nil
	}
	b.Status = models.StatusDelivered
	b.DeliveredAt = &deliveredAt
	return true, nil
}

// fakeNotifier records emitted notifications.
type fakeNotifier struct {
	emitted []emittedNotification
}

type emittedNotification struct {
	UserID  primitive.ObjectID
	Type    string
	Title   string
	Message string
	Opts    EmitOptions
}

func (f *fakeNotifier) Emit(_ context.Context, userID primitive.ObjectID, notifType, title, message string, opts EmitOptions) error {
	f.emitted = append(f.emitted, emittedNotification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Opts:    opts,
	})
	return nil
}

// fakeMailer records sent mail.
type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.sent = append(f.sent, to+": "+subject)
	return nil
}
