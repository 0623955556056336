// file: internal/models/notification.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationTypeBadgeEarned is the notification kind created by the
// badge completion pipeline. Exactly one such notification exists per
// (user, badge) pair that has ever reached COMPLETED.
const NotificationTypeBadgeEarned = "badge_earned"

// ValidateNotificationType validates notification type enum
func ValidateNotificationType(notifType string) bool {
	validTypes := []string{
		NotificationTypeBadgeEarned,
		"meal_plan_reminder", "shopping_list_shared", "announcement", "system_update",
	}
	for _, valid := range validTypes {
		if notifType == valid {
			return true
		}
	}
	return false
}

// JSONMap handles an opaque JSONB payload column
type JSONMap map[string]interface{}

// Scan implements sql.Scanner
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Value implements driver.Valuer
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		j = JSONMap{}
	}
	return json.Marshal(j)
}

// Notification is a durable, user-visible notification record
type Notification struct {
	ID      int64   `json:"id" db:"id"`
	UserID  int64   `json:"user_id" db:"user_id" validate:"required"`
	Type    string  `json:"type" db:"type" validate:"required,max=50"`
	Title   string  `json:"title" db:"title" validate:"required,max=255"`
	Message string  `json:"message" db:"message" validate:"max=2000"`
	Data    JSONMap `json:"data,omitempty" db:"data"`

	IsRead bool       `json:"is_read" db:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty" db:"read_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsUnread checks if notification is unread
func (n *Notification) IsUnread() bool {
	return !n.IsRead
}

// BadgeEarnedData builds the client rendering payload for a badge earned
// notification
func BadgeEarnedData(badge *BadgeDefinition, earnedAt time.Time) JSONMap {
	return JSONMap{
		"badge_id":   badge.ID,
		"badge_key":  badge.Key,
		"badge_name": badge.Name,
		"category":   string(badge.Category),
		"rarity":     string(badge.Rarity),
		"xp_reward":  badge.XPReward,
		"earned_at":  earnedAt.UTC().Format(time.RFC3339),
	}
}
