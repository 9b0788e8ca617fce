package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/Bekzat2201/UniConnect/pkg/email"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the persistence surface for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	UpdateUserFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	AddBadge(ctx context.Context, userID primitive.ObjectID, grant models.BadgeGrant) error
}

// UserService encapsulates the business logic for accounts, badges and the
// activity streak.
type UserService struct {
	repo     UserStore
	mailer   email.Mailer
	notifier Notifier
	validate *validator.Validate
	baseURL  string
	now      func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo UserStore, mailer email.Mailer, notifier Notifier, baseURL string) *UserService {
	return &UserService{
		repo:     repo,
		mailer:   mailer,
		notifier: notifier,
		validate: validator.New(),
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
}

// RegisterUser registers a new account, hashes the password and sends the
// verification email.
func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration payload: %v: %w", err, apperrors.ErrValidation)
	}

	existing, _ := s.repo.GetUserByEmail(ctx, req.Email)
	if existing != nil {
		logrus.WithField("email", req.Email).Warn("Email already in use")
		return nil, fmt.Errorf("email already in use: %w", apperrors.ErrConflict)
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}

	user := &models.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: string(hashedPwd),
		Role:           role,
		VerifyToken:    uuid.NewString(),
	}

	createdUser, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %v", err)
	}

	verificationLink := fmt.Sprintf("%s/users/verify?token=%s", s.baseURL, user.VerifyToken)
	body := fmt.Sprintf("Welcome to UniConnect!\n\nPlease verify your email by clicking the link below:\n%s", verificationLink)
	if err := s.mailer.Send(user.Email, "Email Verification", body); err != nil {
		logrus.WithError(err).Error("Failed to send verification email")
		return nil, fmt.Errorf("failed to send verification email")
	}

	logrus.WithFields(logrus.Fields{
		"userID": createdUser.ID.Hex(),
		"role":   createdUser.Role,
	}).Info("User registered successfully")
	return createdUser, nil
}

// VerifyEmail confirms an account from the emailed token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.repo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid or expired verification token: %w", apperrors.ErrNotFound)
	}

	return s.repo.UpdateUserFields(ctx, user.ID, map[string]interface{}{
		"is_verified":  true,
		"verify_token": "",
	})
}

// AuthenticateUser verifies the credentials and returns the user if valid.
func (s *UserService) AuthenticateUser(ctx context.Context, userEmail, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrPermission)
	}

	if !user.IsVerified {
		return nil, fmt.Errorf("email not verified: %w", apperrors.ErrPermission)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		logrus.WithField("email", userEmail).Warn("Invalid credentials")
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrPermission)
	}

	return user, nil
}

// RequestPasswordReset emails a reset link valid for one hour.
func (s *UserService) RequestPasswordReset(ctx context.Context, userEmail string) error {
	user, err := s.repo.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return fmt.Errorf("no account found with this email: %w", apperrors.ErrNotFound)
	}

	resetToken := uuid.NewString()
	if err := s.repo.UpdateUserFields(ctx, user.ID, map[string]interface{}{
		"reset_token":     resetToken,
		"reset_token_exp": s.now().Add(1 * time.Hour),
	}); err != nil {
		return fmt.Errorf("failed to save reset token: %v", err)
	}

	resetLink := fmt.Sprintf("%s/users/reset-password?token=%s", s.baseURL, resetToken)
	body := fmt.Sprintf("Click the link below to reset your password:\n\n%s", resetLink)
	if err := s.mailer.Send(user.Email, "Reset Your Password", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %v", err)
	}

	logrus.Infof("Password reset email sent to %s", userEmail)
	return nil
}

// ResetPassword sets a new password from a valid reset token.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", apperrors.ErrValidation)
	}

	user, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid or expired reset token: %w", apperrors.ErrNotFound)
	}
	if s.now().After(user.ResetTokenExp) {
		return fmt.Errorf("reset token has expired: %w", apperrors.ErrValidation)
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	return s.repo.UpdateUserFields(ctx, user.ID, map[string]interface{}{
		"hashed_password": string(hashedPwd),
		"reset_token":     "",
		"reset_token_exp": time.Time{},
	})
}

// GetUser retrieves a user by their hex ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", apperrors.ErrValidation)
	}
	return s.repo.GetUserByID(ctx, objID)
}

// UpdateProfile updates the mutable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, username string) error {
	if username == "" {
		return fmt.Errorf("username is required: %w", apperrors.ErrValidation)
	}
	return s.repo.UpdateUserFields(ctx, userID, map[string]interface{}{
		"username": username,
	})
}

// SearchUsers finds users by username fragment.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.PublicUser, error) {
	users, err := s.repo.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	return public, nil
}

// GetAllUsers returns every account. Admin surface only.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

// AwardBadge grants a badge to a user and notifies them. Awarding the same
// badge twice is a conflict.
func (s *UserService) AwardBadge(ctx context.Context, adminID, userID primitive.ObjectID, badgeID, badgeName string) error {
	if badgeID == "" || badgeName == "" {
		return fmt.Errorf("badge id and name are required: %w", apperrors.ErrValidation)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	for _, grant := range user.Badges {
		if grant.BadgeID == badgeID {
			return fmt.Errorf("badge %q already awarded: %w", badgeID, apperrors.ErrConflict)
		}
	}

	grant := models.BadgeGrant{
		BadgeID:   badgeID,
		Name:      badgeName,
		AwardedBy: adminID,
		AwardedAt: s.now(),
	}
	if err := s.repo.AddBadge(ctx, userID, grant); err != nil {
		return err
	}

	if err := s.notifier.Emit(ctx, userID, "badge",
		"Badge awarded",
		fmt.Sprintf("You earned the %q badge", badgeName),
		EmitOptions{SenderID: &adminID},
	); err != nil {
		logrus.WithError(err).Warnf("Failed to notify %s about badge award", userID.Hex())
	}
	return nil
}

// RecordActivity updates the user's last-active timestamp and daily streak:
// consecutive-day activity increments the streak, a gap resets it to 1.
func (s *UserService) RecordActivity(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	fields := map[string]interface{}{"last_active_at": now}

	today := now.Truncate(24 * time.Hour)
	lastDay := user.LastActiveAt.Truncate(24 * time.Hour)

	switch {
	case user.LastActiveAt.IsZero() || today.Sub(lastDay) > 24*time.Hour:
		fields["streak_count"] = 1
	case today.Sub(lastDay) == 24*time.Hour:
		fields["streak_count"] = user.StreakCount + 1
	}

	return s.repo.UpdateUserFields(ctx, userID, fields)
}
