package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles recognized by the API.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents an account in the UniConnect network.
//
// Following/Followers hold the directed follow graph; Connections holds the
// mutual edges and is re-derived on every follow/unfollow so the two directed
// lists stay the single source of truth.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username       string               `bson:"username" json:"username"`
	Email          string               `bson:"email" json:"email"`
	HashedPassword string               `bson:"hashed_password" json:"-"`
	Role           string               `bson:"role" json:"role"`
	IsVerified     bool                 `bson:"is_verified" json:"is_verified"`
	VerifyToken    string               `bson:"verify_token,omitempty" json:"-"`
	ResetToken     string               `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExp  time.Time            `bson:"reset_token_exp,omitempty" json:"-"`
	Badges         []BadgeGrant         `bson:"badges,omitempty" json:"badges,omitempty"`
	Following      []primitive.ObjectID `bson:"following,omitempty" json:"following,omitempty"`
	Followers      []primitive.ObjectID `bson:"followers,omitempty" json:"followers,omitempty"`
	Connections    []primitive.ObjectID `bson:"connections,omitempty" json:"connections,omitempty"`
	StreakCount    int                  `bson:"streak_count" json:"streak_count"`
	LastActiveAt   time.Time            `bson:"last_active_at,omitempty" json:"last_active_at,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// BadgeGrant records a badge awarded to a user.
type BadgeGrant struct {
	BadgeID   string             `bson:"badge_id" json:"badge_id"`
	Name      string             `bson:"name" json:"name"`
	AwardedBy primitive.ObjectID `bson:"awarded_by" json:"awarded_by"`
	AwardedAt time.Time          `bson:"awarded_at" json:"awarded_at"`
}

// PublicUser is the projection returned to other users.
type PublicUser struct {
	ID          primitive.ObjectID `json:"id"`
	Username    string             `json:"username"`
	Role        string             `json:"role"`
	Badges      []BadgeGrant       `json:"badges,omitempty"`
	StreakCount int                `json:"streak_count"`
}

// Public strips the private fields off a User.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Badges:      u.Badges,
		StreakCount: u.StreakCount,
	}
}
