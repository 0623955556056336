// file: internal/services/user_service.go
package services

import (
	"context"

	"platewise/internal/models"
	"platewise/internal/repositories"
	"platewise/internal/validation"

	"go.uber.org/zap"
)

// userService implements UserService
type userService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("user", id)
		}
		s.logger.Error("Failed to get user", zap.Error(err), zap.Int64("user_id", id))
		return nil, NewInternalError("failed to get user")
	}

	user.PasswordHash = ""
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, NewValidationError("username is required", nil)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("user", username)
		}
		s.logger.Error("Failed to get user by username", zap.Error(err), zap.String("username", username))
		return nil, NewInternalError("failed to get user")
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile updates mutable profile fields
func (s *userService) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid profile update request", err)
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("user", req.UserID)
		}
		return nil, NewInternalError("failed to load user")
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.HouseholdSize != nil {
		user.HouseholdSize = *req.HouseholdSize
	}
	if req.DietaryTags != nil {
		user.DietaryTags = *req.DietaryTags
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil, NewInternalError("failed to update profile")
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", user.ID))

	user.PasswordHash = ""
	return user, nil
}

// DeactivateUser deactivates an account. Rows are kept: badge history
// and recipes stay intact should the account return.
func (s *userService) DeactivateUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewValidationError("invalid user ID", nil)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if repositories.IsNotFound(err) {
			return EntityNotFoundError("user", userID)
		}
		s.logger.Error("Failed to deactivate user", zap.Error(err), zap.Int64("user_id", userID))
		return NewInternalError("failed to deactivate user")
	}

	s.logger.Info("User deactivated", zap.Int64("user_id", userID))
	return nil
}
