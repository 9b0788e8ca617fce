package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository handles database operations related to users and the follow
// graph stored on user documents.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, fmt.Errorf("failed to insert user: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	user.ID = insertedID

	logrus.WithField("userID", user.ID.Hex()).Info("User inserted successfully")
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %v", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %v", err)
	}
	return &user, nil
}

// GetUserByVerificationToken looks up a user by their email verification token.
func (r *UserRepository) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"verify_token": token}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("verification token: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by verification token: %v", err)
	}
	return &user, nil
}

// GetUserByResetToken looks up a user by their password reset token.
func (r *UserRepository) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"reset_token": token}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("reset token: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by reset token: %v", err)
	}
	return &user, nil
}

// UpdateUserFields applies a partial update to a user document.
func (r *UserRepository) UpdateUserFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// GetUsersByIDs fetches user details for a list of ObjectIDs.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by IDs: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

// GetAllUsers fetches every user document.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

// GetUsersByRole fetches all users with the given role.
func (r *UserRepository) GetUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"role": role})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by role: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

// SearchUsers finds users whose username matches the query, case-insensitive.
func (r *UserRepository) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	filter := bson.M{"username": bson.M{"$regex": query, "$options": "i"}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

// AddFollowEdge appends target to actor's following and actor to target's
// followers. $addToSet keeps both lists duplicate-free. Either both documents
// are updated or neither: if the second write fails the first is rolled back.
func (r *UserRepository) AddFollowEdge(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": actorID},
		bson.M{"$addToSet": bson.M{"following": targetID}},
	); err != nil {
		return fmt.Errorf("failed to add following edge: %v", err)
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": actorID}},
	); err != nil {
		r.rollback(actorID, bson.M{"$pull": bson.M{"following": targetID}})
		return fmt.Errorf("failed to add follower edge: %v", err)
	}
	return nil
}

// RemoveFollowEdge removes target from actor's following and actor from
// target's followers, rolling back the first write if the second fails.
func (r *UserRepository) RemoveFollowEdge(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": actorID},
		bson.M{"$pull": bson.M{"following": targetID}},
	); err != nil {
		return fmt.Errorf("failed to remove following edge: %v", err)
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": actorID}},
	); err != nil {
		r.rollback(actorID, bson.M{"$addToSet": bson.M{"following": targetID}})
		return fmt.Errorf("failed to remove follower edge: %v", err)
	}
	return nil
}

// AddConnection records the mutual edge on both users, rolling back the first
// write if the second fails.
func (r *UserRepository) AddConnection(ctx context.Context, userID1, userID2 primitive.ObjectID) error {
	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID1},
		bson.M{"$addToSet": bson.M{"connections": userID2}},
	); err != nil {
		return fmt.Errorf("failed to add connection to user %s: %v", userID1.Hex(), err)
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID2},
		bson.M{"$addToSet": bson.M{"connections": userID1}},
	); err != nil {
		r.rollback(userID1, bson.M{"$pull": bson.M{"connections": userID2}})
		return fmt.Errorf("failed to add connection to user %s: %v", userID2.Hex(), err)
	}
	return nil
}

// RemoveConnection strips the mutual edge from both users, rolling back the
// first write if the second fails.
func (r *UserRepository) RemoveConnection(ctx context.Context, userID1, userID2 primitive.ObjectID) error {
	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID1},
		bson.M{"$pull": bson.M{"connections": userID2}},
	); err != nil {
		return fmt.Errorf("failed to remove connection from user %s: %v", userID1.Hex(), err)
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID2},
		bson.M{"$pull": bson.M{"connections": userID1}},
	); err != nil {
		r.rollback(userID1, bson.M{"$addToSet": bson.M{"connections": userID2}})
		return fmt.Errorf("failed to remove connection from user %s: %v", userID2.Hex(), err)
	}
	return nil
}

// rollback undoes the first half of a two-document mutation after the second
// half failed. Runs on a fresh context: the original one may already be
// cancelled, and the inverse update must still go through.
func (r *UserRepository) rollback(id primitive.ObjectID, update bson.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		logrus.WithError(err).Errorf("Failed to roll back update on user %s", id.Hex())
	}
}

// AddBadge appends a badge grant to a user.
func (r *UserRepository) AddBadge(ctx context.Context, userID primitive.ObjectID, grant models.BadgeGrant) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"badges": grant}},
	)
	if err != nil {
		return fmt.Errorf("failed to add badge: %v", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
	}
	return nil
}
