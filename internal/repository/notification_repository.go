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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository handles the notifications and broadcasts collections.
type NotificationRepository struct {
	notifications *mongo.Collection
	broadcasts    *mongo.Collection
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		notifications: db.Collection("notifications"),
		broadcasts:    db.Collection("broadcasts"),
	}
}

// InsertNotification inserts a single per-recipient notification.
func (r *NotificationRepository) InsertNotification(ctx context.Context, notif *models.Notification) error {
	_, err := r.notifications.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return fmt.Errorf("failed to create notification: %v", err)
	}
	return nil
}

// InsertNotifications inserts a batch of per-recipient notifications, used by
// broadcast fan-out.
func (r *NotificationRepository) InsertNotifications(ctx context.Context, notifs []models.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(notifs))
	for i := range notifs {
		docs = append(docs, notifs[i])
	}
	if _, err := r.notifications.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert notifications: %v", err)
	}
	return nil
}

// GetUserNotifications returns a user's unexpired notifications, newest first.
func (r *NotificationRepository) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	filter := bson.M{
		"user_id":    userID,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}
	return notifications, nil
}

// CountUnread counts a user's delivered-but-unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"user_id":    userID,
		"status":     models.StatusDelivered,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	count, err := r.notifications.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %v", err)
	}
	return count, nil
}

// MarkRead flips a notification's status to read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": models.StatusRead}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %v", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// MarkAllRead flips every delivered notification of a user to read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.notifications.UpdateMany(ctx,
		bson.M{"user_id": userID, "status": models.StatusDelivered},
		bson.M{"$set": bson.M{"status": models.StatusRead}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %v", err)
	}
	return nil
}

// DeleteNotification deletes a notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.notifications.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// DeleteExpiredNotifications removes notifications past their expiry.
func (r *NotificationRepository) DeleteExpiredNotifications(ctx context.Context) error {
	result, err := r.notifications.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to delete expired notifications: %v", err)
	}
	logrus.Infof("Deleted %d expired notifications", result.DeletedCount)
	return nil
}

// InsertBroadcast stores an admin broadcast record.
func (r *NotificationRepository) InsertBroadcast(ctx context.Context, b *models.Broadcast) (*models.Broadcast, error) {
	result, err := r.broadcasts.InsertOne(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	b.ID = insertedID
	return b, nil
}

// GetBroadcastByID retrieves a broadcast by its ID.
func (r *NotificationRepository) GetBroadcastByID(ctx context.Context, id primitive.ObjectID) (*models.Broadcast, error) {
	var b models.Broadcast
	err := r.broadcasts.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find broadcast: %v", err)
	}
	return &b, nil
}

// ListBroadcasts returns the admin history, newest first, narrowed by the
// optional conjunctive filters.
func (r *NotificationRepository) ListBroadcasts(ctx context.Context, f models.BroadcastFilter) ([]models.Broadcast, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.TargetGroup != "" {
		filter["target_group"] = f.TargetGroup
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.broadcasts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %v", err)
	}
	defer cursor.Close(ctx)

	var broadcasts []models.Broadcast
	if err := cursor.All(ctx, &broadcasts); err != nil {
		return nil, fmt.Errorf("failed to decode broadcasts: %v", err)
	}
	return broadcasts, nil
}

// UpdateBroadcast applies a partial update. Last writer wins.
func (r *NotificationRepository) UpdateBroadcast(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	res, err := r.broadcasts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update broadcast: %v", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// DeleteBroadcast removes a broadcast record.
func (r *NotificationRepository) DeleteBroadcast(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.broadcasts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete broadcast: %v", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("broadcast %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// FindDueBroadcasts returns pending broadcasts whose scheduled time has passed.
func (r *NotificationRepository) FindDueBroadcasts(ctx context.Context, now time.Time) ([]models.Broadcast, error) {
	filter := bson.M{
		"status":        models.StatusPending,
		"scheduled_for": bson.M{"$lte": now},
	}
	cursor, err := r.broadcasts.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find due broadcasts: %v", err)
	}
	defer cursor.Close(ctx)

	var broadcasts []models.Broadcast
	if err := cursor.All(ctx, &broadcasts); err != nil {
		return nil, fmt.Errorf("failed to decode broadcasts: %v", err)
	}
	return broadcasts, nil
}

// PromoteBroadcast atomically flips a pending broadcast to delivered. Returns
// false when another sweep already promoted it, which guards duplicate fan-out.
func (r *NotificationRepository) PromoteBroadcast(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (bool, error) {
	res, err := r.broadcasts.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":       models.StatusDelivered,
			"delivered_at": deliveredAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to promote broadcast: %v", err)
	}
	return res.ModifiedCount == 1, nil
}
