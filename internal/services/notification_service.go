package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notificationTTL is how long a delivered notification stays visible.
const notificationTTL = 7 * 24 * time.Hour

// NotificationStore is the persistence surface the notification service needs.
type NotificationStore interface {
	InsertNotification(ctx context.Context, notif *models.Notification) error
	InsertNotifications(ctx context.Context, notifs []models.Notification) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
	DeleteExpiredNotifications(ctx context.Context) error
	InsertBroadcast(ctx context.Context, b *models.Broadcast) (*models.Broadcast, error)
	GetBroadcastByID(ctx context.Context, id primitive.ObjectID) (*models.Broadcast, error)
	ListBroadcasts(ctx context.Context, f models.BroadcastFilter) ([]models.Broadcast, error)
	UpdateBroadcast(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
	DeleteBroadcast(ctx context.Context, id primitive.ObjectID) error
	FindDueBroadcasts(ctx context.Context, now time.Time) ([]models.Broadcast, error)
	PromoteBroadcast(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (bool, error)
}

// UserDirectory resolves broadcast target groups to recipients.
type UserDirectory interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUsersByRole(ctx context.Context, role string) ([]models.User, error)
}

// NotificationService owns per-user notifications and admin broadcasts.
type NotificationService struct {
	repo     NotificationStore
	users    UserDirectory
	validate *validator.Validate
	now      func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo NotificationStore, users UserDirectory) *NotificationService {
	return &NotificationService{
		repo:     repo,
		users:    users,
		validate: validator.New(),
		now:      time.Now,
	}
}

// EmitOptions carries the optional fields of a notification.
type EmitOptions struct {
	Priority string
	SenderID *primitive.ObjectID
	Link     string
}

// Emit appends a delivered per-recipient notification record.
func (s *NotificationService) Emit(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, opts EmitOptions) error {
	priority := opts.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := s.now()
	notif := &models.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Priority:  priority,
		Status:    models.StatusDelivered,
		SenderID:  opts.SenderID,
		Link:      opts.Link,
		CreatedAt: now,
		ExpiresAt: now.Add(notificationTTL),
	}
	return s.repo.InsertNotification(ctx, notif)
}

// GetUserNotifications returns all unexpired notifications for a user.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.repo.GetUserNotifications(ctx, userID)
}

// UnreadCount returns the badge counter value for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkNotificationAsRead flips a notification's status to read.
func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, notifID primitive.ObjectID) error {
	return s.repo.MarkRead(ctx, notifID)
}

// MarkAllAsRead flips every delivered notification of a user to read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// DeleteNotification deletes a specific notification.
func (s *NotificationService) DeleteNotification(ctx context.Context, notifID primitive.ObjectID) error {
	return s.repo.DeleteNotification(ctx, notifID)
}

// BroadcastRequest is the admin payload for creating a broadcast.
type BroadcastRequest struct {
	Type         string     `json:"type" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Message      string     `json:"message" validate:"required"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	TargetGroup  string     `json:"target_group" validate:"omitempty,oneof=all students teachers"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// Broadcast creates an admin broadcast. Without a future ScheduledFor the
// broadcast is delivered immediately (per-recipient fan-out); otherwise it is
// stored pending until the scheduler sweep promotes it.
func (s *NotificationService) Broadcast(ctx context.Context, senderID primitive.ObjectID, req BroadcastRequest) (*models.Broadcast, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid broadcast payload: %v: %w", err, apperrors.ErrValidation)
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.TargetGroup == "" {
		req.TargetGroup = models.TargetAll
	}

	now := s.now()
	b := &models.Broadcast{
		Type:         req.Type,
		Title:        req.Title,
		Message:      req.Message,
		Priority:     req.Priority,
		TargetGroup:  req.TargetGroup,
		SenderID:     senderID,
		ScheduledFor: req.ScheduledFor,
		CreatedAt:    now,
	}

	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		b.Status = models.StatusPending
		return s.repo.InsertBroadcast(ctx, b)
	}

	b.Status = models.StatusDelivered
	b.DeliveredAt = &now
	created, err := s.repo.InsertBroadcast(ctx, b)
	if err != nil {
		return nil, err
	}
	if err := s.fanOut(ctx, created, now); err != nil {
		return nil, err
	}
	return created, nil
}

// ProcessScheduledNotifications promotes every due pending broadcast exactly
// once and fans it out to its target group. Invoked from the cron scheduler
// and when an admin loads the broadcast history.
func (s *NotificationService) ProcessScheduledNotifications(ctx context.Context) error {
	now := s.now()
	due, err := s.repo.FindDueBroadcasts(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch due broadcasts: %w", err)
	}

	for i := range due {
		b := &due[i]
		promoted, err := s.repo.PromoteBroadcast(ctx, b.ID, now)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to promote broadcast %s", b.ID.Hex())
			continue
		}
		if !promoted {
			// Another sweep got there first.
			continue
		}
		if err := s.fanOut(ctx, b, now); err != nil {
			logrus.WithError(err).Errorf("Failed to fan out broadcast %s", b.ID.Hex())
		}
	}
	return nil
}

// fanOut writes one notification per recipient in the broadcast's target group.
func (s *NotificationService) fanOut(ctx context.Context, b *models.Broadcast, now time.Time) error {
	recipients, err := s.resolveTargets(ctx, b.TargetGroup)
	if err != nil {
		return err
	}

	notifs := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		notifs = append(notifs, models.Notification{
			UserID:      user.ID,
			Type:        b.Type,
			Title:       b.Title,
			Message:     b.Message,
			Priority:    b.Priority,
			Status:      models.StatusDelivered,
			SenderID:    &b.SenderID,
			BroadcastID: &b.ID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(notificationTTL),
		})
	}

	if err := s.repo.InsertNotifications(ctx, notifs); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"broadcastID": b.ID.Hex(),
		"targetGroup": b.TargetGroup,
		"recipients":  len(notifs),
	}).Info("Broadcast delivered")
	return nil
}

func (s *NotificationService) resolveTargets(ctx context.Context, group string) ([]models.User, error) {
	switch group {
	case models.TargetStudents:
		return s.users.GetUsersByRole(ctx, models.RoleStudent)
	case models.TargetTeachers:
		return s.users.GetUsersByRole(ctx, models.RoleTeacher)
	case models.TargetAll:
		return s.users.GetAllUsers(ctx)
	default:
		return nil, fmt.Errorf("unknown target group %q: %w", group, apperrors.ErrValidation)
	}
}

// GetBroadcasts returns the admin history narrowed by the optional filters.
func (s *NotificationService) GetBroadcasts(ctx context.Context, filter models.BroadcastFilter) ([]models.Broadcast, error) {
	return s.repo.ListBroadcasts(ctx, filter)
}

// BroadcastUpdate is the admin payload for editing a stored broadcast.
type BroadcastUpdate struct {
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
}

// UpdateBroadcast edits a broadcast record by id. Last writer wins.
func (s *NotificationService) UpdateBroadcast(ctx context.Context, id primitive.ObjectID, upd BroadcastUpdate) error {
	if err := s.validate.Struct(upd); err != nil {
		return fmt.Errorf("invalid broadcast update: %v: %w", err, apperrors.ErrValidation)
	}

	fields := map[string]interface{}{}
	if upd.Title != "" {
		fields["title"] = upd.Title
	}
	if upd.Message != "" {
		fields["message"] = upd.Message
	}
	if upd.Priority != "" {
		fields["priority"] = upd.Priority
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update: %w", apperrors.ErrValidation)
	}
	return s.repo.UpdateBroadcast(ctx, id, fields)
}

// DeleteBroadcast removes a broadcast from the admin history.
func (s *NotificationService) DeleteBroadcast(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.DeleteBroadcast(ctx, id)
}

// CleanupExpiredNotifications is called by the daily cron job.
func (s *NotificationService) CleanupExpiredNotifications(ctx context.Context) error {
	return s.repo.DeleteExpiredNotifications(ctx)
}
