package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat types.
const (
	ChatDirect = "direct"
	ChatGroup  = "group"
)

// Message types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageVideo = "video"
	MessageAudio = "audio"
	MessageFile  = "file"
)

// Chat is a conversation container. Participants are stored sorted so that a
// direct chat between two users can be found deterministically regardless of
// argument order.
type Chat struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Type         string               `bson:"type" json:"type"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage  *MessagePreview      `bson:"last_message,omitempty" json:"last_message,omitempty"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// MessagePreview is the denormalized last-message pointer kept on a Chat.
type MessagePreview struct {
	MessageID primitive.ObjectID `bson:"message_id" json:"message_id"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Type      string             `bson:"type" json:"type"`
	Content   string             `bson:"content,omitempty" json:"content,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Message is an immutable unit inside a Chat. ParentID, when set, references a
// root message of the same chat (single-level threading only).
type Message struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ChatID    primitive.ObjectID  `bson:"chat_id" json:"chat_id"`
	SenderID  primitive.ObjectID  `bson:"sender_id" json:"sender_id"`
	Type      string              `bson:"type" json:"type"`
	Content   string              `bson:"content,omitempty" json:"content,omitempty"`
	FileURL   string              `bson:"file_url,omitempty" json:"file_url,omitempty"`
	FileName  string              `bson:"file_name,omitempty" json:"file_name,omitempty"`
	ParentID  *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// Thread is a root message together with its direct replies, both in original
// append order.
type Thread struct {
	Root    Message   `json:"root"`
	Replies []Message `json:"replies"`
}
