// file: internal/events/badge_events.go
package events

import "time"

// ===============================
// BADGE EVENTS
// ===============================

// BadgeProgressUpdatedEvent is emitted whenever a recalculation changes a
// user's stored progress toward a badge
type BadgeProgressUpdatedEvent struct {
	BaseEvent
	BadgeID    int64   `json:"badge_id"`
	BadgeKey   string  `json:"badge_key"`
	ProgressID int64   `json:"progress_id"`
	Progress   float64 `json:"progress"`
	Status     string  `json:"status"`
}

// NewBadgeProgressUpdatedEvent creates a new BadgeProgressUpdatedEvent
func NewBadgeProgressUpdatedEvent(userID, badgeID, progressID int64, badgeKey string, progress float64, status string) *BadgeProgressUpdatedEvent {
	return &BadgeProgressUpdatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "badge.progress_updated",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:    badgeID,
		BadgeKey:   badgeKey,
		ProgressID: progressID,
		Progress:   progress,
		Status:     status,
	}
}

// BadgeCompletedEvent is emitted exactly when a badge crosses into the
// completed state. Consumers must tolerate duplicates; the notification
// claim is what guarantees exactly-once delivery.
type BadgeCompletedEvent struct {
	BaseEvent
	BadgeID    int64     `json:"badge_id"`
	BadgeKey   string    `json:"badge_key"`
	BadgeName  string    `json:"badge_name"`
	ProgressID int64     `json:"progress_id"`
	XPReward   int       `json:"xp_reward"`
	AchievedAt time.Time `json:"achieved_at"`
}

// NewBadgeCompletedEvent creates a new BadgeCompletedEvent
func NewBadgeCompletedEvent(userID, badgeID, progressID int64, badgeKey, badgeName string, xpReward int, achievedAt time.Time) *BadgeCompletedEvent {
	return &BadgeCompletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "badge.completed",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:    badgeID,
		BadgeKey:   badgeKey,
		BadgeName:  badgeName,
		ProgressID: progressID,
		XPReward:   xpReward,
		AchievedAt: achievedAt,
	}
}

// BadgeProgressResetEvent is emitted when an administrator resets a user's
// progress on a badge
type BadgeProgressResetEvent struct {
	BaseEvent
	BadgeID    int64 `json:"badge_id"`
	ProgressID int64 `json:"progress_id"`
}

// NewBadgeProgressResetEvent creates a new BadgeProgressResetEvent
func NewBadgeProgressResetEvent(userID, badgeID, progressID int64) *BadgeProgressResetEvent {
	return &BadgeProgressResetEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "badge.progress_reset",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:    badgeID,
		ProgressID: progressID,
	}
}

// ===============================
// NOTIFICATION EVENTS
// ===============================

// NotificationCreatedEvent is emitted after a notification row is persisted,
// letting the websocket hub push it to connected clients
type NotificationCreatedEvent struct {
	BaseEvent
	NotificationID   int64  `json:"notification_id"`
	NotificationType string `json:"notification_type"`
	Title            string `json:"title"`
}

// NewNotificationCreatedEvent creates a new NotificationCreatedEvent
func NewNotificationCreatedEvent(notificationID, userID int64, notificationType, title string) *NotificationCreatedEvent {
	return &NotificationCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "notification.created",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		NotificationID:   notificationID,
		NotificationType: notificationType,
		Title:            title,
	}
}
