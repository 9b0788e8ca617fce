package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification delivery status. The status field is the single source of
// truth; the read flag exposed over JSON is derived from it.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Broadcast target groups.
const (
	TargetAll      = "all"
	TargetStudents = "students"
	TargetTeachers = "teachers"
)

// Notification is a per-recipient delivery record.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type        string              `bson:"type" json:"type"`
	Title       string              `bson:"title" json:"title"`
	Message     string              `bson:"message" json:"message"`
	Priority    string              `bson:"priority" json:"priority"`
	Status      string              `bson:"status" json:"status"`
	SenderID    *primitive.ObjectID `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	Link        string              `bson:"link,omitempty" json:"link,omitempty"`
	BroadcastID *primitive.ObjectID `bson:"broadcast_id,omitempty" json:"broadcast_id,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time           `bson:"expires_at" json:"expires_at"`
}

// Read reports whether the notification has been viewed.
func (n *Notification) Read() bool {
	return n.Status == StatusRead
}

// Broadcast is an admin-issued notification targeting a group of users. A
// broadcast with a future ScheduledFor stays pending until the scheduler sweep
// promotes it and fans out per-recipient notifications.
type Broadcast struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type         string             `bson:"type" json:"type"`
	Title        string             `bson:"title" json:"title"`
	Message      string             `bson:"message" json:"message"`
	Priority     string             `bson:"priority" json:"priority"`
	TargetGroup  string             `bson:"target_group" json:"target_group"`
	Status       string             `bson:"status" json:"status"`
	SenderID     primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ScheduledFor *time.Time         `bson:"scheduled_for,omitempty" json:"scheduled_for,omitempty"`
	DeliveredAt  *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// BroadcastFilter is the conjunctive filter for the admin history view. Empty
// fields are ignored.
type BroadcastFilter struct {
	Type        string
	Priority    string
	TargetGroup string
	Status      string
}
