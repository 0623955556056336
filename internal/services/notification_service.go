// file: internal/services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"platewise/internal/events"
	"platewise/internal/models"
	"platewise/internal/repositories"
	"platewise/internal/validation"

	"go.uber.org/zap"
)

// notificationService implements NotificationService
type notificationService struct {
	notificationRepo repositories.NotificationRepository
	badgeRepo        repositories.BadgeRepository
	events           events.EventBus
	logger           *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	badgeRepo repositories.BadgeRepository,
	eventBus events.EventBus,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		badgeRepo:        badgeRepo,
		events:           eventBus,
		logger:           logger,
	}
}

// ===============================
// BADGE EARNED EMITTER
// ===============================

// EmitBadgeEarned creates the durable badge earned notification. The
// unique badge earned index makes it idempotent per (user, badge) pair:
// a duplicate insert, whether from a retry or a racing caller, is a
// silent no-op. So is a badge that vanished from the catalog between the
// completion and the emission.
func (s *notificationService) EmitBadgeEarned(ctx context.Context, userID, badgeID int64) (*models.Notification, error) {
	if userID <= 0 || badgeID <= 0 {
		return nil, NewValidationError("invalid user or badge ID", nil)
	}

	badge, err := s.badgeRepo.GetBadgeByID(ctx, badgeID)
	if err != nil {
		if repositories.IsNotFound(err) {
			s.logger.Warn("Badge vanished before notification, skipping",
				zap.Int64("user_id", userID), zap.Int64("badge_id", badgeID))
			return nil, nil
		}
		return nil, fmt.Errorf("load badge %d: %w", badgeID, err)
	}

	if exists, err := s.notificationRepo.ExistsBadgeEarned(ctx, userID, badgeID); err != nil {
		s.logger.Warn("Failed to check existing badge notification",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badgeID))
	} else if exists {
		return nil, nil
	}

	earnedAt := time.Now().UTC()
	notification := &models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeBadgeEarned,
		Title:   fmt.Sprintf("Badge earned: %s", badge.Name),
		Message: badge.Description,
		Data:    models.BadgeEarnedData(badge, earnedAt),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		// A racing emitter between the existence check and the insert.
		// Their row stands; do not publish a second stream event.
		if repositories.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("create badge earned notification: %w", err)
	}

	s.publish(ctx, events.NewNotificationCreatedEvent(
		notification.ID, userID, notification.Type, notification.Title,
	))

	s.logger.Info("Badge earned notification created",
		zap.Int64("notification_id", notification.ID),
		zap.Int64("user_id", userID),
		zap.String("badge_key", badge.Key),
	)
	return notification, nil
}

// ===============================
// NOTIFICATION SURFACE
// ===============================

// ListNotifications pages through a user's notifications with the unread
// counter
func (s *notificationService) ListNotifications(ctx context.Context, req *ListNotificationsRequest) (*NotificationListResponse, error) {
	if req.Pagination.Limit <= 0 {
		req.Pagination.Limit = 20
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid notification listing request", err)
	}

	page, err := s.notificationRepo.List(ctx, req.UserID, req.UnreadOnly, req.Pagination)
	if err != nil {
		s.logger.Error("Failed to list notifications",
			zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to list notifications")
	}

	unread, err := s.notificationRepo.CountUnread(ctx, req.UserID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications",
			zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to list notifications")
	}

	return &NotificationListResponse{
		Notifications: page,
		UnreadCount:   unread,
	}, nil
}

// MarkRead marks the given notifications read, scoped to the owner
func (s *notificationService) MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if userID <= 0 {
		return 0, NewValidationError("invalid user ID", nil)
	}
	if len(ids) == 0 {
		return 0, NewValidationError("no notification IDs given", nil)
	}

	updated, err := s.notificationRepo.MarkRead(ctx, userID, ids)
	if err != nil {
		s.logger.Error("Failed to mark notifications read",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int("count", len(ids)))
		return 0, NewInternalError("failed to mark notifications read")
	}
	return updated, nil
}

// DeleteNotifications deletes the given notifications, scoped to the owner
func (s *notificationService) DeleteNotifications(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if userID <= 0 {
		return 0, NewValidationError("invalid user ID", nil)
	}
	if len(ids) == 0 {
		return 0, NewValidationError("no notification IDs given", nil)
	}

	deleted, err := s.notificationRepo.Delete(ctx, userID, ids)
	if err != nil {
		s.logger.Error("Failed to delete notifications",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int("count", len(ids)))
		return 0, NewInternalError("failed to delete notifications")
	}
	return deleted, nil
}

func (s *notificationService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish notification event",
			zap.Error(err), zap.String("event_type", event.GetEventType()))
	}
}
