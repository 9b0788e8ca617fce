package services

import (
	"context"
	"testing"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newChatFixture(t *testing.T) (*ChatService, *fakeChatStore, *fakeNotifier, *models.User, *models.User) {
	t.Helper()
	alice := &models.User{Username: "alice", Email: "alice@uni.edu", Role: models.RoleStudent}
	bob := &models.User{Username: "bob", Email: "bob@uni.edu", Role: models.RoleStudent}
	users := newFakeUserStore(alice, bob)
	chats := newFakeChatStore()
	notifier := &fakeNotifier{}
	return NewChatService(chats, users, notifier), chats, notifier, alice, bob
}

func TestGetOrCreateDirectChatIsIdempotent(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	first, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, models.ChatDirect, first.Type)

	// Same pair in either argument order resolves to the same chat.
	second, err := svc.GetOrCreateDirectChat(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	third, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestGetOrCreateDirectChatWithSelfRejected(t *testing.T) {
	svc, _, _, alice, _ := newChatFixture(t)

	_, err := svc.GetOrCreateDirectChat(context.Background(), alice.ID, alice.ID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetOrCreateDirectChatUnknownUser(t *testing.T) {
	svc, _, _, alice, _ := newChatFixture(t)

	_, err := svc.GetOrCreateDirectChat(context.Background(), alice.ID, primitive.NewObjectID())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendMessageUpdatesLastMessageAndNotifies(t *testing.T) {
	svc, chats, notifier, alice, bob := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageText, "hey bob", "", "")
	require.NoError(t, err)
	assert.Equal(t, "hey bob", msg.Content)
	assert.Nil(t, msg.ParentID)

	stored := chats.chats[chat.ID]
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, msg.ID, stored.LastMessage.MessageID)
	assert.Equal(t, alice.ID, stored.LastMessage.SenderID)

	// Only the other participant is notified.
	require.Len(t, notifier.emitted, 1)
	assert.Equal(t, bob.ID, notifier.emitted[0].UserID)
	assert.Equal(t, "message", notifier.emitted[0].Type)
	assert.Equal(t, "New message from alice", notifier.emitted[0].Title)

	// The preview always tracks the latest message.
	reply, err := svc.SendMessage(ctx, chat.ID, bob.ID, models.MessageText, "hey alice", "", "")
	require.NoError(t, err)
	last, err := svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageText, "how are you", "", "")
	require.NoError(t, err)

	stored = chats.chats[chat.ID]
	assert.NotEqual(t, reply.ID, stored.LastMessage.MessageID)
	assert.Equal(t, last.ID, stored.LastMessage.MessageID)
	assert.Equal(t, "how are you", stored.LastMessage.Content)
	assert.Equal(t, alice.ID, stored.LastMessage.SenderID)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, chat.ID, primitive.NewObjectID(), models.MessageText, "hi", "", "")
	assert.True(t, apperrors.IsPermission(err))
}

func TestSendMessagePayloadValidation(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageText, "", "", "")
	assert.True(t, apperrors.IsValidation(err), "empty text content")

	_, err = svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageImage, "", "", "pic.png")
	assert.True(t, apperrors.IsValidation(err), "file message without file URL")

	_, err = svc.SendMessage(ctx, chat.ID, alice.ID, "sticker", "hi", "", "")
	assert.True(t, apperrors.IsValidation(err), "unknown message type")

	_, err = svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageImage, "", "/uploads/pic.png", "pic.png")
	assert.NoError(t, err)
}

func TestReplyToBuildsSingleLevelThread(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	root, err := svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageText, "anyone going to the lecture?", "", "")
	require.NoError(t, err)

	reply, err := svc.ReplyTo(ctx, chat.ID, root.ID, bob.ID, "yes, see you there")
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	// Replies to replies are rejected.
	_, err = svc.ReplyTo(ctx, chat.ID, reply.ID, alice.ID, "great")
	assert.True(t, apperrors.IsValidation(err))
}

func TestReplyToParentFromAnotherChatRejected(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	carol := &models.User{ID: primitive.NewObjectID(), Username: "carol", Email: "carol@uni.edu", Role: models.RoleStudent}
	svc.users.(*fakeUserStore).users[carol.ID] = carol
	ctx := context.Background()

	chatAB, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	chatAC, err := svc.GetOrCreateDirectChat(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	root, err := svc.SendMessage(ctx, chatAB.ID, alice.ID, models.MessageText, "hello", "", "")
	require.NoError(t, err)

	_, err = svc.ReplyTo(ctx, chatAC.ID, root.ID, alice.ID, "crossing chats")
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetChatMessagesPreservesAppendOrder(t *testing.T) {
	svc, _, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(ctx, chat.ID, alice.ID, models.MessageText, content, "", "")
		require.NoError(t, err)
	}

	messages, err := svc.GetChatMessages(ctx, chat.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
	assert.Equal(t, "three", messages[2].Content)

	_, err = svc.GetChatMessages(ctx, chat.ID, primitive.NewObjectID())
	assert.True(t, apperrors.IsPermission(err))
}

func TestBuildThreads(t *testing.T) {
	rootA := models.Message{ID: primitive.NewObjectID(), Content: "a"}
	rootB := models.Message{ID: primitive.NewObjectID(), Content: "b"}
	replyA1 := models.Message{ID: primitive.NewObjectID(), Content: "a1", ParentID: &rootA.ID}
	replyB1 := models.Message{ID: primitive.NewObjectID(), Content: "b1", ParentID: &rootB.ID}
	replyA2 := models.Message{ID: primitive.NewObjectID(), Content: "a2", ParentID: &rootA.ID}
	orphanParent := primitive.NewObjectID()
	orphan := models.Message{ID: primitive.NewObjectID(), Content: "orphan", ParentID: &orphanParent}

	threads := BuildThreads([]models.Message{rootA, replyA1, rootB, replyB1, replyA2, orphan})

	require.Len(t, threads, 2)
	assert.Equal(t, "a", threads[0].Root.Content)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, "a1", threads[0].Replies[0].Content)
	assert.Equal(t, "a2", threads[0].Replies[1].Content)
	assert.Equal(t, "b", threads[1].Root.Content)
	require.Len(t, threads[1].Replies, 1)
	assert.Equal(t, "b1", threads[1].Replies[0].Content)
}

func TestBuildThreadsEmptyInput(t *testing.T) {
	assert.Empty(t, BuildThreads(nil))
}

func TestListChatsNewestFirst(t *testing.T) {
	svc, chats, _, alice, bob := newChatFixture(t)
	ctx := context.Background()

	carolID := primitive.NewObjectID()
	users := svc.users.(*fakeUserStore)
	users.users[carolID] = &models.User{ID: carolID, Username: "carol", Role: models.RoleStudent}

	chatAB, err := svc.GetOrCreateDirectChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	chatAC, err := svc.GetOrCreateDirectChat(ctx, alice.ID, carolID)
	require.NoError(t, err)

	// Bump chatAB well past chatAC's creation time.
	chats.chats[chatAB.ID].UpdatedAt = time.Now().Add(time.Hour)

	listed, err := svc.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, chatAB.ID, listed[0].ID)
	assert.Equal(t, chatAC.ID, listed[1].ID)
}
