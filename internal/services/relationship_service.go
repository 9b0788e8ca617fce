package services

import (
	"context"
	"fmt"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipStore is the persistence surface for the follow graph.
type RelationshipStore interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AddFollowEdge(ctx context.Context, actorID, targetID primitive.ObjectID) error
	RemoveFollowEdge(ctx context.Context, actorID, targetID primitive.ObjectID) error
	AddConnection(ctx context.Context, userID1, userID2 primitive.ObjectID) error
	RemoveConnection(ctx context.Context, userID1, userID2 primitive.ObjectID) error
}

// Notifier is the slice of the notification service the graph services need.
type Notifier interface {
	Emit(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, opts EmitOptions) error
}

// RelationshipService maintains the directed follow graph and the derived
// mutual connections.
type RelationshipService struct {
	repo     RelationshipStore
	notifier Notifier
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(repo RelationshipStore, notifier Notifier) *RelationshipService {
	return &RelationshipService{
		repo:     repo,
		notifier: notifier,
	}
}

// FollowResult reports the outcome of a follow action.
type FollowResult struct {
	FollowerCount int  `json:"follower_count"`
	Mutual        bool `json:"mutual"`
}

// Follow adds the directed edge actor→target. A duplicate follow is rejected
// as a conflict rather than treated as idempotent, matching the client's
// "already following" surface. When the reverse edge exists both users gain a
// connection.
func (s *RelationshipService) Follow(ctx context.Context, actorID, targetID primitive.ObjectID) (*FollowResult, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("cannot follow yourself: %w", apperrors.ErrValidation)
	}

	actor, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if containsID(actor.Following, targetID) {
		return nil, fmt.Errorf("already following %s: %w", target.Username, apperrors.ErrConflict)
	}

	if err := s.repo.AddFollowEdge(ctx, actorID, targetID); err != nil {
		return nil, err
	}

	mutual := containsID(target.Following, actorID)
	if mutual {
		if err := s.repo.AddConnection(ctx, actorID, targetID); err != nil {
			// The mutation is all-or-nothing: undo the edge so the graph is
			// left exactly as it was before the call.
			if rbErr := s.repo.RemoveFollowEdge(ctx, actorID, targetID); rbErr != nil {
				logrus.WithError(rbErr).Errorf("Failed to roll back follow edge %s -> %s", actorID.Hex(), targetID.Hex())
			}
			return nil, err
		}
		s.emitConnection(ctx, actor, target)
	}

	if err := s.notifier.Emit(ctx, targetID, "follow",
		"New follower",
		fmt.Sprintf("%s started following you", actor.Username),
		EmitOptions{SenderID: &actorID, Link: "/profile/" + actorID.Hex()},
	); err != nil {
		logrus.WithError(err).Warnf("Failed to notify %s about new follower", targetID.Hex())
	}

	logrus.WithFields(logrus.Fields{
		"actorID":  actorID.Hex(),
		"targetID": targetID.Hex(),
		"mutual":   mutual,
	}).Info("Follow recorded")

	return &FollowResult{
		FollowerCount: len(target.Followers) + 1,
		Mutual:        mutual,
	}, nil
}

// Unfollow removes the directed edge actor→target. The connection edge is
// stripped from both sides unconditionally: mutuality cannot survive the
// removal of either direction, so re-deriving here never leaves a stale
// one-sided connection behind.
func (s *RelationshipService) Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if actorID == targetID {
		return fmt.Errorf("cannot unfollow yourself: %w", apperrors.ErrValidation)
	}

	actor, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetUserByID(ctx, targetID); err != nil {
		return err
	}

	if !containsID(actor.Following, targetID) {
		return fmt.Errorf("not following this user: %w", apperrors.ErrConflict)
	}

	if err := s.repo.RemoveFollowEdge(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := s.repo.RemoveConnection(ctx, actorID, targetID); err != nil {
		// Restore the edge so the failed call leaves no trace.
		if rbErr := s.repo.AddFollowEdge(ctx, actorID, targetID); rbErr != nil {
			logrus.WithError(rbErr).Errorf("Failed to restore follow edge %s -> %s", actorID.Hex(), targetID.Hex())
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"actorID":  actorID.Hex(),
		"targetID": targetID.Hex(),
	}).Info("Unfollow recorded")
	return nil
}

// GetFollowers returns the public profiles of a user's followers.
func (s *RelationshipService) GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.publicUsers(ctx, user.Followers)
}

// GetFollowing returns the public profiles a user follows.
func (s *RelationshipService) GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.publicUsers(ctx, user.Following)
}

// GetConnections returns the public profiles of a user's mutual connections.
func (s *RelationshipService) GetConnections(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.publicUsers(ctx, user.Connections)
}

// emitConnection drops a lightweight "connection" record into both users'
// feeds when a follow becomes mutual. Delivery failures are logged, not fatal.
func (s *RelationshipService) emitConnection(ctx context.Context, actor, target *models.User) {
	pairs := []struct {
		to   primitive.ObjectID
		from *models.User
	}{
		{to: actor.ID, from: target},
		{to: target.ID, from: actor},
	}
	for _, p := range pairs {
		if err := s.notifier.Emit(ctx, p.to, "connection",
			"New connection",
			fmt.Sprintf("You and %s are now connected", p.from.Username),
			EmitOptions{Priority: models.PriorityLow, SenderID: &p.from.ID, Link: "/profile/" + p.from.ID.Hex()},
		); err != nil {
			logrus.WithError(err).Warnf("Failed to record connection for %s", p.to.Hex())
		}
	}
}

func (s *RelationshipService) publicUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.PublicUser, error) {
	if len(ids) == 0 {
		return []models.PublicUser{}, nil
	}
	users, err := s.repo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %v", err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	return public, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
